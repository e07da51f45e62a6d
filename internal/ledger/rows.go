package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"foodlog/internal/macros"
)

// Schema describes one of the fixed table layouts.
type Schema struct {
	Name      string
	Header    string
	Separator string
	// Columns is the exact cell count of a data row once boundary pipes
	// are dropped.
	Columns int
	// CommentOptional accepts rows whose trailing comment cell is missing.
	CommentOptional bool

	anchor *regexp.Regexp
}

var (
	baseAnchor    = regexp.MustCompile(`^\|\s*Время\s*\|\s*Блюдо\s*\|\s*Ккал/100г`)
	portionAnchor = regexp.MustCompile(`^\|\s*Время\s*\|\s*Блюдо\s*\|\s*Порц`)

	separatorPattern = regexp.MustCompile(`^\|[\s:|-]*-[\s:|-]*$`)
)

var (
	// BaseSchema is the authoritative per-100g table of a day section.
	BaseSchema = Schema{
		Name:            "base",
		Header:          "| Время | Блюдо | Ккал/100г | Б/100г | Ж/100г | У/100г | Порц. | Комментарий |",
		Separator:       "|-------|-------|----------:|------:|------:|------:|-----:|-------------|",
		Columns:         8,
		CommentOptional: true,
		anchor:          baseAnchor,
	}
	// PortionSchema is the derived per-portion table of a day section.
	PortionSchema = Schema{
		Name:            "portion",
		Header:          "| Время | Блюдо | Порц. | Ккал | Б | Ж | У | Комментарий |",
		Separator:       "|-------|-------|-----:|-----:|--:|--:|--:|-------------|",
		Columns:         8,
		CommentOptional: true,
		anchor:          portionAnchor,
	}
	// ExpandedSchema is the older combined layout carrying per-100g values
	// and portion totals in one row.
	ExpandedSchema = Schema{
		Name:            "expanded",
		Header:          "| Время | Блюдо | Ккал/100г | Б/100г | Ж/100г | У/100г | Порц. | Ккал | Б | Ж | У | Комментарий |",
		Separator:       "|-------|-------|----------:|------:|------:|------:|-----:|-----:|--:|--:|--:|-------------|",
		Columns:         12,
		CommentOptional: true,
		anchor:          baseAnchor,
	}
	// MealsSchema is the summary table between the meals table markers. The
	// last cell holds the id marker.
	MealsSchema = Schema{
		Name:      "meals",
		Header:    "| Время | Блюдо | Порция г | Ккал | Б | Ж | У |",
		Separator: "|-------|-------|---------:|-----:|--:|--:|--:|",
		Columns:   8,
		anchor:    portionAnchor,
	}
)

// IsHeader reports whether line is this schema's header line.
func (s Schema) IsHeader(line string) bool {
	return s.anchor.MatchString(trimCR(line))
}

// Cells splits a data row. It rejects separators, headers and rows whose
// cell count does not fit the schema.
func (s Schema) Cells(line string) ([]string, bool) {
	line = trimCR(line)
	if !strings.HasPrefix(line, "|") || isSeparator(line) || s.IsHeader(line) {
		return nil, false
	}
	cells := splitCells(line)
	switch {
	case len(cells) == s.Columns:
		return cells, true
	case s.CommentOptional && len(cells) == s.Columns-1:
		return append(cells, ""), true
	default:
		return nil, false
	}
}

func isSeparator(line string) bool {
	return separatorPattern.MatchString(strings.TrimSpace(trimCR(line)))
}

func splitCells(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func headerColumns(line string) int {
	return len(splitCells(trimCR(line)))
}

func renderRow(cells ...string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// BaseRow is a row of the base table: per-100g values and a portion.
type BaseRow struct {
	Time    string
	Item    string
	Per100g macros.Set
	Portion *float64
	Comment string
	// Recorded holds portion totals written next to the per-100g values
	// by the expanded layout. It is empty for base table rows.
	Recorded macros.Set
}

// ParseBaseRow parses a base table data row.
func ParseBaseRow(line string) (BaseRow, bool) {
	c, ok := BaseSchema.Cells(line)
	if !ok {
		return BaseRow{}, false
	}
	return BaseRow{
		Time: c[0],
		Item: c[1],
		Per100g: macros.Set{
			Calories:      macros.ParseNumber(c[2]),
			Proteins:      macros.ParseNumber(c[3]),
			Fats:          macros.ParseNumber(c[4]),
			Carbohydrates: macros.ParseNumber(c[5]),
		},
		Portion: macros.ParseNumber(c[6]),
		Comment: c[7],
	}, true
}

// ParseExpandedRow parses a row of the expanded layout.
func ParseExpandedRow(line string) (BaseRow, bool) {
	c, ok := ExpandedSchema.Cells(line)
	if !ok {
		return BaseRow{}, false
	}
	return BaseRow{
		Time: c[0],
		Item: c[1],
		Per100g: macros.Set{
			Calories:      macros.ParseNumber(c[2]),
			Proteins:      macros.ParseNumber(c[3]),
			Fats:          macros.ParseNumber(c[4]),
			Carbohydrates: macros.ParseNumber(c[5]),
		},
		Portion: macros.ParseNumber(c[6]),
		Recorded: macros.Set{
			Calories:      macros.ParseNumber(c[7]),
			Proteins:      macros.ParseNumber(c[8]),
			Fats:          macros.ParseNumber(c[9]),
			Carbohydrates: macros.ParseNumber(c[10]),
		},
		Comment: c[11],
	}, true
}

// Totals returns the row's portion values. Recorded totals win per field;
// otherwise per-100g values are scaled by the portion.
func (r BaseRow) Totals() macros.Set {
	scaled := r.Per100g.ScalePortion(r.Portion)
	var out macros.Set
	for _, f := range macros.Fields {
		if v := r.Recorded.Get(f); v != nil {
			out = out.With(f, v)
			continue
		}
		out = out.With(f, scaled.Get(f))
	}
	return out
}

// Render formats the row for the base table.
func (r BaseRow) Render() string {
	return renderRow(
		r.Time,
		tableCell(r.Item),
		macros.FormatCell(r.Per100g.Calories),
		macros.FormatCell(r.Per100g.Proteins),
		macros.FormatCell(r.Per100g.Fats),
		macros.FormatCell(r.Per100g.Carbohydrates),
		macros.FormatCell(r.Portion),
		r.Comment,
	)
}

// PortionRow is a derived row of the portion table.
type PortionRow struct {
	Time    string
	Item    string
	Portion *float64
	Totals  macros.Set
	Comment string
}

// ParsePortionRow parses a portion table data row.
func ParsePortionRow(line string) (PortionRow, bool) {
	c, ok := PortionSchema.Cells(line)
	if !ok {
		return PortionRow{}, false
	}
	return PortionRow{
		Time:    c[0],
		Item:    c[1],
		Portion: macros.ParseNumber(c[2]),
		Totals: macros.Set{
			Calories:      macros.ParseNumber(c[3]),
			Proteins:      macros.ParseNumber(c[4]),
			Fats:          macros.ParseNumber(c[5]),
			Carbohydrates: macros.ParseNumber(c[6]),
		},
		Comment: c[7],
	}, true
}

// PortionRowFrom derives the portion row for a base row.
func PortionRowFrom(r BaseRow) PortionRow {
	return PortionRow{
		Time:    r.Time,
		Item:    r.Item,
		Portion: r.Portion,
		Totals:  r.Totals(),
		Comment: r.Comment,
	}
}

// Render formats the row for the portion table.
func (r PortionRow) Render() string {
	return renderRow(
		r.Time,
		tableCell(r.Item),
		macros.FormatCell(r.Portion),
		macros.FormatCell(r.Totals.Calories),
		macros.FormatCell(r.Totals.Proteins),
		macros.FormatCell(r.Totals.Fats),
		macros.FormatCell(r.Totals.Carbohydrates),
		r.Comment,
	)
}

// MealRow is a row of the meals table.
type MealRow struct {
	ID      string
	Time    string
	Item    string
	Portion *float64
	Totals  macros.Set
}

// ParseMealRow parses a meals table row. The id comes from the marker in
// the trailing cell.
func ParseMealRow(line string) (MealRow, bool) {
	c, ok := MealsSchema.Cells(line)
	if !ok {
		return MealRow{}, false
	}
	m := mealMarkerPattern.FindStringSubmatch(c[7])
	if m == nil {
		return MealRow{}, false
	}
	return MealRow{
		ID:      m[1],
		Time:    c[0],
		Item:    c[1],
		Portion: macros.ParseNumber(c[2]),
		Totals: macros.Set{
			Calories:      macros.ParseNumber(c[3]),
			Proteins:      macros.ParseNumber(c[4]),
			Fats:          macros.ParseNumber(c[5]),
			Carbohydrates: macros.ParseNumber(c[6]),
		},
	}, true
}

// MealRowFrom builds the meals table row for an entry.
func MealRowFrom(e MealEntry) MealRow {
	return MealRow{
		ID:      e.ID,
		Time:    e.Clock(),
		Item:    e.DisplayItem(),
		Portion: e.PortionGrams,
		Totals:  e.Totals(),
	}
}

// Render formats the row with its trailing id marker.
func (r MealRow) Render() string {
	return fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s",
		r.Time,
		tableCell(r.Item),
		macros.FormatCell(r.Portion),
		macros.FormatCell(r.Totals.Calories),
		macros.FormatCell(r.Totals.Proteins),
		macros.FormatCell(r.Totals.Fats),
		macros.FormatCell(r.Totals.Carbohydrates),
		MealMarker(r.ID),
	)
}
