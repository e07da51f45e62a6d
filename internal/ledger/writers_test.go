package ledger_test

import (
	"strings"
	"testing"

	"foodlog/internal/ledger"
)

func TestInsertMealBuildsBlocksAndRows(t *testing.T) {
	text, ok := ledger.InsertMeal("# Food Log\n", oats())
	if !ok {
		t.Fatal("expected first insert to write")
	}
	text, ok = ledger.InsertMeal(text, salad())
	if !ok {
		t.Fatal("expected second insert to write")
	}
	if text != twoMeals {
		t.Fatalf("unexpected note:\n%s", text)
	}
	if again, ok := ledger.InsertMeal(text, oats()); ok || again != text {
		t.Fatal("expected duplicate id to be skipped")
	}
	if res := ledger.Sync(text); res.Changed {
		t.Fatal("expected inserted note to be in sync")
	}
}

func TestInsertMealIntoEmptyNote(t *testing.T) {
	text, _ := ledger.InsertMeal("", oats())
	if !strings.HasPrefix(text, "---\n#### Приём пищи — 2024-05-01 08:00:00") {
		t.Fatalf("expected block at the top:\n%s", text)
	}
	if !strings.Contains(text, oatsBlockRow) {
		t.Fatalf("expected table row:\n%s", text)
	}
}

func TestRebuildMealsTable(t *testing.T) {
	if out, changed := ledger.RebuildMealsTable(twoMeals); changed || out != twoMeals {
		t.Fatalf("expected rebuild of a consistent table to be a no-op:\n%s", out)
	}

	damaged := strings.Replace(twoMeals, oatsBlockRow+"\n", "", 1)
	damaged = strings.Replace(damaged, refreshBtn+"\n", "", 1)
	out, changed := ledger.RebuildMealsTable(damaged)
	if !changed || out != twoMeals {
		t.Fatalf("expected rebuild to restore rows from blocks:\n%s", out)
	}
}

func TestAppendDayEntry(t *testing.T) {
	want := join(
		"# Food Log",
		"",
		"## 2024-05-01",
		"<!--DAILY_TOTALS:2024-05-01-->",
		"**Итого сейчас:** 570 ккал / Б 18 / Ж 13 / У 90",
		"",
		"### База (на 100 г)",
		baseHeader,
		baseSep,
		"| 08:00 | Oats | 380 | 12 | 8.5 | 60 | 150 |  |",
		"",
		"### Итоги (по порции)",
		portionHead,
		portionSep,
		"| 08:00 | Oats | 150 | 570 | 18 | 12.8 | 90 |  |",
		"",
	)
	got := ledger.AppendDayEntry("# Food Log\n", oats(), ledger.Aggregator{})
	if got != want {
		t.Fatalf("unexpected note:\n%s", got)
	}
	if again := ledger.AppendDayEntry(got, oats(), ledger.Aggregator{}); again != got {
		t.Fatal("expected identical row not to be added twice")
	}
}

func TestAppendDayEntryPlacesSectionBeforeMeals(t *testing.T) {
	got := ledger.AppendDayEntry(twoMeals, oats(), ledger.Aggregator{})
	day := strings.Index(got, "## 2024-05-01")
	block := strings.Index(got, "#### Приём пищи")
	if day < 0 || block < 0 || day > block {
		t.Fatalf("expected day section before the first meal block:\n%s", got)
	}
	if res := ledger.Sync(got); res.Changed {
		t.Fatal("expected the day section not to disturb meal sync")
	}
}

func TestAppendNote(t *testing.T) {
	got := ledger.AppendNote("", "2024-05-01 08:00:00", "hello")
	want := "# Food Log\n\n\n---\n**2024-05-01 08:00:00**\n\nhello\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	got = ledger.AppendNote("existing", "2024-05-01 09:00:00", "more")
	if got != "existing\n\n---\n**2024-05-01 09:00:00**\n\nmore\n" {
		t.Fatalf("unexpected append %q", got)
	}
}
