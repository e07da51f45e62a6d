package ledger

import (
	"fmt"
	"strings"

	"foodlog/internal/macros"
)

// Targets are daily goals. Zero disables the percentage for that macro.
type Targets struct {
	Calories      float64 `toml:"calories" json:"calories"`
	Proteins      float64 `toml:"proteins" json:"proteins"`
	Fats          float64 `toml:"fats" json:"fats"`
	Carbohydrates float64 `toml:"carbohydrates" json:"carbohydrates"`
}

// Get returns the target for f.
func (t Targets) Get(f macros.Field) float64 {
	switch f {
	case macros.Calories:
		return t.Calories
	case macros.Proteins:
		return t.Proteins
	case macros.Fats:
		return t.Fats
	case macros.Carbohydrates:
		return t.Carbohydrates
	}
	return 0
}

// Any reports whether at least one target is set.
func (t Targets) Any() bool {
	return t.Calories > 0 || t.Proteins > 0 || t.Fats > 0 || t.Carbohydrates > 0
}

var percentLetters = [...]string{"К", "Б", "Ж", "У"}

// Aggregator recomputes day sections from their base tables.
type Aggregator struct {
	Targets Targets
}

// DayTotals summarizes one aggregated section.
type DayTotals struct {
	Date string
	Rows int
	Sum  macros.Set
}

// Sum adds the portion values of rows, skipping unknowns.
func Sum(rows []BaseRow) macros.Set {
	sets := make([]macros.Set, 0, len(rows))
	for _, r := range rows {
		sets = append(sets, r.Totals())
	}
	return macros.Sum(sets...)
}

// TotalsLine renders the running totals with optional target percentages.
func (a Aggregator) TotalsLine(sum macros.Set) string {
	line := fmt.Sprintf("%s %s ккал / Б %s / Ж %s / У %s", totalsLabel,
		macros.FormatRounded(sum.Calories), macros.FormatRounded(sum.Proteins),
		macros.FormatRounded(sum.Fats), macros.FormatRounded(sum.Carbohydrates))
	if !a.Targets.Any() {
		return line
	}
	var terms []string
	for i, f := range macros.Fields {
		target := a.Targets.Get(f)
		v := sum.Get(f)
		if target <= 0 || v == nil {
			continue
		}
		terms = append(terms, fmt.Sprintf("%s %.0f%%", percentLetters[i], macros.RoundHalfUp(*v/target*100)))
	}
	if len(terms) == 0 {
		return line
	}
	return line + " (" + strings.Join(terms, " / ") + ")"
}

// Apply recomputes every day section in text.
func (a Aggregator) Apply(text string) (string, []DayTotals, bool) {
	doc := Parse(text)
	if len(doc.Days) == 0 {
		return text, nil, false
	}
	lines := doc.Lines
	totals := make([]DayTotals, len(doc.Days))
	// Back to front so earlier line indices stay valid.
	for i := len(doc.Days) - 1; i >= 0; i-- {
		day := doc.Days[i]
		section, sum := a.rewrite(doc.Lines, day)
		totals[i] = DayTotals{Date: day.Date, Rows: len(day.SourceRows()), Sum: sum}
		lines = splice(lines, day.Range, section)
	}
	out := strings.Join(lines, "\n")
	return out, totals, out != text
}

// ApplyDay recomputes the section for date only.
func (a Aggregator) ApplyDay(text, date string) (string, bool) {
	doc := Parse(text)
	day := doc.Day(date)
	if day == nil {
		return text, false
	}
	section, _ := a.rewrite(doc.Lines, day)
	out := strings.Join(splice(doc.Lines, day.Range, section), "\n")
	return out, out != text
}

// rewrite returns the new lines of day. The totals line goes directly
// under the heading and stale totals for the date are dropped. The portion
// table is regenerated from the source rows, or created after the base
// table when missing.
func (a Aggregator) rewrite(lines []string, day *DaySection) ([]string, macros.Set) {
	rows := day.SourceRows()
	sum := Sum(rows)

	skip := make(map[int]bool)
	for _, i := range day.Totals {
		skip[i] = true
		if next := i + 1; next < day.Range.End && strings.HasPrefix(strings.TrimSpace(lines[next]), totalsLabel) {
			skip[next] = true
		}
	}

	portion := []string{PortionSchema.Header, PortionSchema.Separator}
	for _, r := range rows {
		portion = append(portion, PortionRowFrom(r).Render())
	}

	source := day.Base
	if source == nil {
		source = day.Expanded
	}

	out := make([]string, 0, day.Range.End-day.Range.Start+len(portion)+4)
	for i := day.Range.Start; i < day.Range.End; i++ {
		switch {
		case i == day.Heading:
			out = append(out, lines[i], TotalsMarker(day.Date), a.TotalsLine(sum))
			continue
		case skip[i]:
			continue
		case day.Portion != nil && day.Portion.Range.Contains(i):
			if i == day.Portion.Range.Start {
				out = append(out, portion...)
			}
			continue
		}
		out = append(out, lines[i])
		if day.Portion == nil && source != nil && i == source.Range.End-1 {
			out = append(out, "", portionTitle)
			out = append(out, portion...)
		}
	}
	return out, sum
}

func splice(lines []string, r Range, repl []string) []string {
	out := make([]string, 0, len(lines)-(r.End-r.Start)+len(repl))
	out = append(out, lines[:r.Start]...)
	out = append(out, repl...)
	return append(out, lines[r.End:]...)
}
