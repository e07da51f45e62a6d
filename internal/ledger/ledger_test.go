package ledger_test

import (
	"strings"
	"testing"
	"time"

	"foodlog/internal/ledger"
	"foodlog/internal/macros"
)

func join(lines ...string) string {
	return strings.Join(lines, "\n")
}

func f(v float64) *float64 { return macros.Float(v) }

func oats() ledger.MealEntry {
	return ledger.MealEntry{
		ID:           "MID-a",
		Timestamp:    time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Item:         "Oats",
		PortionGrams: f(150),
		Per100g:      macros.Set{Calories: f(380), Proteins: f(12), Fats: f(8.5), Carbohydrates: f(60)},
	}
}

func salad() ledger.MealEntry {
	return ledger.MealEntry{
		ID:        "MID-b",
		Timestamp: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Item:      "Salad",
		Per100g:   macros.Set{Calories: f(20), Proteins: f(1), Fats: f(0), Carbohydrates: f(3)},
	}
}

const (
	refreshBtn   = `<button class="ca-refresh-table-btn">Обновить таблицу</button>`
	mealsHeader  = "| Время | Блюдо | Порция г | Ккал | Б | Ж | У |"
	mealsSep     = "|-------|-------|---------:|-----:|--:|--:|--:|"
	baseHeader   = "| Время | Блюдо | Ккал/100г | Б/100г | Ж/100г | У/100г | Порц. | Комментарий |"
	baseSep      = "|-------|-------|----------:|------:|------:|------:|-----:|-------------|"
	portionHead  = "| Время | Блюдо | Порц. | Ккал | Б | Ж | У | Комментарий |"
	portionSep   = "|-------|-------|-----:|-----:|--:|--:|--:|-------------|"
	oatsBlockRow = "| 08:00 | Oats | 150 | 570 | 18 | 12.8 | 90 | <!--MEAL_ID:MID-a-->"
)

// twoMeals is the note produced by inserting oats then salad into "# Food Log\n".
var twoMeals = join(
	"# Food Log",
	"",
	"---",
	"#### Приём пищи — 2024-05-01 08:00:00",
	"<!--MEAL_ID:MID-a-->",
	"**Блюдо:** Oats",
	"**На 100 г:** 380.0 ккал / Б 12.0 / Ж 8.5 / У 60.0",
	"**Порция:** 150 г",
	"**Итого за порцию:** 570.0 ккал (Б 18.0 / Ж 12.8 / У 90.0)",
	"",
	`<button class="ca-delete-meal-btn" data-meal-id="MID-a">Удалить приём</button>`,
	"",
	"---",
	"#### Приём пищи — 2024-05-01 12:30:00",
	"<!--MEAL_ID:MID-b-->",
	"**Блюдо:** Salad",
	"**На 100 г:** 20.0 ккал / Б 1.0 / Ж 0.0 / У 3.0",
	"",
	`<button class="ca-delete-meal-btn" data-meal-id="MID-b">Удалить приём</button>`,
	"",
	"<!--MEALS_TABLE_START-->",
	"",
	refreshBtn,
	"",
	mealsHeader,
	mealsSep,
	"| 12:30 | Salad | — | — | — | — | — | <!--MEAL_ID:MID-b-->",
	oatsBlockRow,
	"<!--MEALS_TABLE_END-->",
	"",
)

func TestParseDocument(t *testing.T) {
	doc := ledger.Parse(twoMeals)
	if len(doc.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(doc.Blocks))
	}
	if doc.Blocks[0].ID != "MID-a" || doc.Blocks[1].ID != "MID-b" {
		t.Fatalf("unexpected block ids %q %q", doc.Blocks[0].ID, doc.Blocks[1].ID)
	}
	if doc.Blocks[0].Stamp != "2024-05-01 08:00:00" {
		t.Fatalf("unexpected stamp %q", doc.Blocks[0].Stamp)
	}
	if doc.Table == nil {
		t.Fatal("expected meals table")
	}
	if len(doc.Table.Rows) != 2 || doc.Table.Rows[0].ID != "MID-b" {
		t.Fatalf("unexpected table rows %+v", doc.Table.Rows)
	}
	if doc.Preamble.End != 2 {
		t.Fatalf("expected preamble to end before first block, got %d", doc.Preamble.End)
	}
	if got := doc.String(); got != twoMeals {
		t.Fatal("expected String to reproduce the input")
	}
}

func TestParseBaseRowRoundTrip(t *testing.T) {
	row, ok := ledger.ParseBaseRow("| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 | |")
	if !ok {
		t.Fatal("expected row to parse")
	}
	totals := row.Totals()
	want := map[string][2]float64{
		"calories":      {*totals.Calories, 570},
		"proteins":      {*totals.Proteins, 18},
		"fats":          {*totals.Fats, 12.75},
		"carbohydrates": {*totals.Carbohydrates, 90},
	}
	for name, pair := range want {
		if pair[0] != pair[1] {
			t.Fatalf("%s: got %v want %v", name, pair[0], pair[1])
		}
	}
	if row.Render() != "| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 |  |" {
		t.Fatalf("unexpected render %q", row.Render())
	}
}

func TestSchemaCells(t *testing.T) {
	cases := []struct {
		name string
		line string
		ok   bool
	}{
		{"full row", "| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 | note |", true},
		{"missing comment", "| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 |", true},
		{"too short", "| 08:00 | Oats | 380 |", false},
		{"separator", baseSep, false},
		{"header", baseHeader, false},
		{"not a row", "08:00 | Oats", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := ledger.BaseSchema.Cells(tc.line); ok != tc.ok {
				t.Fatalf("expected ok=%v", tc.ok)
			}
		})
	}
}

func TestMealIDFormat(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	a := ledger.NewMealID(now)
	b := ledger.NewMealID(now)
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	parts := strings.Split(a, "-")
	if len(parts) != 3 || parts[0] != "MID" || len(parts[2]) != 6 {
		t.Fatalf("unexpected id %q", a)
	}
	if ids := ledger.MealIDs(ledger.MealMarker(a)); len(ids) != 1 || ids[0] != a {
		t.Fatalf("marker does not round-trip: %v", ids)
	}
}
