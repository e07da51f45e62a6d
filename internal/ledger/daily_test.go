package ledger_test

import (
	"strings"
	"testing"

	"foodlog/internal/ledger"
)

var staleDay = join(
	"# Food Log",
	"",
	"## 2024-05-01",
	"<!--DAILY_TOTALS:2024-05-01-->",
	"**Итого сейчас:** 1 ккал / Б 1 / Ж 1 / У 1",
	"",
	"### База (на 100 г)",
	baseHeader,
	baseSep,
	"| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 | |",
	"| 12:00 | Apple | 52 | — | 0.2 | 14 | — | fresh |",
	"",
	"### Итоги (по порции)",
	portionHead,
	portionSep,
	"| stale | row |",
	"",
)

var aggregatedDay = join(
	"# Food Log",
	"",
	"## 2024-05-01",
	"<!--DAILY_TOTALS:2024-05-01-->",
	"**Итого сейчас:** 570 ккал / Б 18 / Ж 13 / У 90",
	"",
	"### База (на 100 г)",
	baseHeader,
	baseSep,
	"| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 | |",
	"| 12:00 | Apple | 52 | — | 0.2 | 14 | — | fresh |",
	"",
	"### Итоги (по порции)",
	portionHead,
	portionSep,
	"| 08:00 | Oats | 150 | 570 | 18 | 12.8 | 90 |  |",
	"| 12:00 | Apple | — | — | — | — | — | fresh |",
	"",
)

func TestAggregateDerivesFromBaseTable(t *testing.T) {
	out, totals, changed := ledger.Aggregator{}.Apply(staleDay)
	if !changed {
		t.Fatal("expected aggregation to change the note")
	}
	if out != aggregatedDay {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if len(totals) != 1 || totals[0].Date != "2024-05-01" || totals[0].Rows != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	again, _, changed := ledger.Aggregator{}.Apply(out)
	if changed || again != out {
		t.Fatal("expected second pass to be a no-op")
	}
}

func TestAggregateIgnoresPreviousTotals(t *testing.T) {
	edited := strings.Replace(aggregatedDay, "| 150 | |", "| 300 | |", 1)
	out, _, _ := ledger.Aggregator{}.Apply(edited)
	if !strings.Contains(out, "**Итого сейчас:** 1140 ккал / Б 36 / Ж 26 / У 180") {
		t.Fatalf("expected totals to follow the edited base row:\n%s", out)
	}
	if strings.Count(out, "<!--DAILY_TOTALS:2024-05-01-->") != 1 {
		t.Fatal("expected exactly one totals marker")
	}
}

func TestTotalsLinePercentages(t *testing.T) {
	rice := "| 09:00 | Rice | 500 | — | — | — | 200 | |"
	row, ok := ledger.ParseBaseRow(rice)
	if !ok {
		t.Fatal("expected row to parse")
	}
	sum := ledger.Sum([]ledger.BaseRow{row})

	cases := []struct {
		name    string
		targets ledger.Targets
		want    string
	}{
		{
			name:    "calorie target",
			targets: ledger.Targets{Calories: 2000},
			want:    "**Итого сейчас:** 1000 ккал / Б — / Ж — / У — (К 50%)",
		},
		{
			name:    "no targets",
			targets: ledger.Targets{},
			want:    "**Итого сейчас:** 1000 ккал / Б — / Ж — / У —",
		},
		{
			name:    "target only for an unknown macro",
			targets: ledger.Targets{Proteins: 100},
			want:    "**Итого сейчас:** 1000 ккал / Б — / Ж — / У —",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (ledger.Aggregator{Targets: tc.targets}).TotalsLine(sum); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestTotalsLineOmitsZeroTargets(t *testing.T) {
	row, _ := ledger.ParseBaseRow("| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 | |")
	line := ledger.Aggregator{Targets: ledger.Targets{Calories: 0, Proteins: 90}}.TotalsLine(ledger.Sum([]ledger.BaseRow{row}))
	if strings.Contains(line, "К ") {
		t.Fatalf("expected no calorie percentage in %q", line)
	}
	if !strings.HasSuffix(line, "(Б 20%)") {
		t.Fatalf("expected protein percentage in %q", line)
	}
}

func TestAggregateUsesExpandedTableWithoutBase(t *testing.T) {
	text := join(
		"## 2024-05-02",
		"| Время | Блюдо | Ккал/100г | Б/100г | Ж/100г | У/100г | Порц. | Ккал | Б | Ж | У | Комментарий |",
		"|---|---|---|---|---|---|---|---|---|---|---|---|",
		"| 10:00 | Bread | 250 | 8 | 3 | 48 | 100 | 260 | — | — | — | |",
		"",
	)
	out, totals, _ := ledger.Aggregator{}.Apply(text)
	if totals[0].Rows != 1 {
		t.Fatalf("expected legacy row to be used, got %+v", totals)
	}
	if !strings.Contains(out, "**Итого сейчас:** 260 ккал / Б 8 / Ж 3 / У 48") {
		t.Fatalf("expected recorded calories and scaled macros:\n%s", out)
	}
	if !strings.Contains(out, "| 10:00 | Bread | 100 | 260 | 8 | 3 | 48 |  |") {
		t.Fatalf("expected a derived portion table:\n%s", out)
	}
}
