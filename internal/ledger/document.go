package ledger

import (
	"regexp"
	"strings"
	"unicode"
)

// Range is a half-open span of line indices.
type Range struct {
	Start int
	End   int
}

// Contains reports whether line i lies inside r.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// Table is a pipe table found inside a day section.
type Table struct {
	Schema    Schema
	Header    int
	Separator int
	Rows      []int
	Range     Range
}

// DaySection is the region introduced by a "## YYYY-MM-DD" heading.
type DaySection struct {
	Date    string
	Heading int
	Range   Range
	// Totals lists the lines carrying this date's totals marker.
	Totals []int

	Base     *Table
	Portion  *Table
	Expanded *Table

	BaseRows     []BaseRow
	PortionRows  []PortionRow
	ExpandedRows []BaseRow
}

// SourceRows returns the rows totals are derived from: the base table, or
// the expanded table when the section has no base table.
func (d *DaySection) SourceRows() []BaseRow {
	if d.Base == nil && d.Expanded != nil {
		return d.ExpandedRows
	}
	return d.BaseRows
}

// MealBlock is a meal description block.
type MealBlock struct {
	ID      string
	Stamp   string
	Heading int
	Range   Range
}

// MealsTable is the marker-bounded summary table.
type MealsTable struct {
	// Range runs from the start marker line through the end marker line.
	Range     Range
	Header    int
	Separator int
	Rows      []MealRow
	RowLines  []int
}

// Document is a note decomposed into ledger regions. Lines are the raw
// text split on "\n"; every region refers to them by index.
type Document struct {
	Lines    []string
	Preamble Range
	Days     []*DaySection
	Blocks   []*MealBlock
	Table    *MealsTable
}

type parseState int

const (
	stateText parseState = iota
	stateDay
	stateBlock
	stateTable
)

type parser struct {
	doc   *Document
	state parseState
	day   *DaySection
	table *Table
	block *MealBlock
}

// Parse decomposes text. It never fails: anything it does not recognise
// is free text.
func Parse(text string) *Document {
	doc := &Document{Lines: strings.Split(text, "\n")}
	p := &parser{doc: doc}
	tableStart, tableEnd := findMealsTable(doc.Lines)
	doc.Preamble = Range{Start: 0, End: len(doc.Lines)}

	for i := 0; i < len(doc.Lines); i++ {
		line := doc.Lines[i]
		if p.state == stateTable {
			p.tableLine(i, line)
			if i == tableEnd {
				p.close(i + 1)
			}
			continue
		}
		switch {
		case i == tableStart:
			p.close(i)
			p.markPreamble(i)
			doc.Table = &MealsTable{Range: Range{Start: i, End: tableEnd + 1}, Header: -1, Separator: -1}
			p.state = stateTable
		case doc.isOpener(i):
			p.close(i)
			p.markPreamble(i)
			p.openBlock(i, i+1)
			i++
		case isMealHeading(line):
			p.close(i)
			p.markPreamble(i)
			p.openBlock(i, i)
		case isLevel2Heading(line):
			p.close(i)
			p.markPreamble(i)
			if date, ok := dayHeadingDate(line); ok {
				p.day = &DaySection{Date: date, Heading: i, Range: Range{Start: i}}
				doc.Days = append(doc.Days, p.day)
				p.state = stateDay
			}
		case p.state == stateDay:
			p.dayLine(i, line)
		case p.state == stateBlock:
			if p.block.ID == "" {
				if ids := lineMealIDs(line); len(ids) > 0 {
					p.block.ID = ids[0]
				}
			}
		}
	}
	p.close(len(doc.Lines))
	return doc
}

func findMealsTable(lines []string) (int, int) {
	start := -1
	for i, line := range lines {
		if start < 0 && strings.Contains(line, MealsTableStart) {
			start = i
			continue
		}
		if start >= 0 && strings.Contains(line, MealsTableEnd) {
			return start, i
		}
	}
	return -1, -1
}

func (p *parser) markPreamble(i int) {
	if p.doc.Preamble.End > i {
		p.doc.Preamble.End = i
	}
}

func (p *parser) close(end int) {
	switch p.state {
	case stateDay:
		p.day.Range.End = end
		p.day = nil
		p.table = nil
	case stateBlock:
		p.block.Range.End = end
		p.block = nil
	}
	p.state = stateText
}

func (p *parser) openBlock(start, heading int) {
	stamp := strings.TrimPrefix(trimCR(p.doc.Lines[heading]), mealHeadingPrefix)
	stamp = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(stamp), "—"))
	p.block = &MealBlock{Stamp: stamp, Heading: heading, Range: Range{Start: start}}
	if ids := lineMealIDs(p.doc.Lines[heading]); len(ids) > 0 {
		p.block.ID = ids[0]
	}
	p.doc.Blocks = append(p.doc.Blocks, p.block)
	p.state = stateBlock
}

func (p *parser) dayLine(i int, line string) {
	d := p.day
	if strings.Contains(line, TotalsMarker(d.Date)) {
		d.Totals = append(d.Totals, i)
	}
	if !strings.HasPrefix(trimCR(line), "|") {
		p.table = nil
		return
	}
	if p.table != nil {
		p.table.Range.End = i + 1
		if isSeparator(line) {
			if p.table.Separator < 0 {
				p.table.Separator = i
			}
			return
		}
		p.tableRow(i, line)
		return
	}
	var schema Schema
	switch {
	case BaseSchema.IsHeader(line) && headerColumns(line) >= ExpandedSchema.Columns:
		schema = ExpandedSchema
	case BaseSchema.IsHeader(line):
		schema = BaseSchema
	case PortionSchema.IsHeader(line):
		schema = PortionSchema
	default:
		return
	}
	p.table = &Table{Schema: schema, Header: i, Separator: -1, Range: Range{Start: i, End: i + 1}}
	switch {
	case schema.Name == BaseSchema.Name && d.Base == nil:
		d.Base = p.table
	case schema.Name == PortionSchema.Name && d.Portion == nil:
		d.Portion = p.table
	case schema.Name == ExpandedSchema.Name && d.Expanded == nil:
		d.Expanded = p.table
	}
}

// tableRow records a data row. Rows of duplicate tables are tracked for
// extent only.
func (p *parser) tableRow(i int, line string) {
	d := p.day
	switch p.table {
	case d.Base:
		if row, ok := ParseBaseRow(line); ok {
			d.BaseRows = append(d.BaseRows, row)
			p.table.Rows = append(p.table.Rows, i)
		}
	case d.Portion:
		if row, ok := ParsePortionRow(line); ok {
			d.PortionRows = append(d.PortionRows, row)
			p.table.Rows = append(p.table.Rows, i)
		}
	case d.Expanded:
		if row, ok := ParseExpandedRow(line); ok {
			d.ExpandedRows = append(d.ExpandedRows, row)
			p.table.Rows = append(p.table.Rows, i)
		}
	}
}

func (p *parser) tableLine(i int, line string) {
	t := p.doc.Table
	if !strings.HasPrefix(trimCR(line), "|") {
		return
	}
	switch {
	case isSeparator(line):
		if t.Separator < 0 {
			t.Separator = i
		}
	case MealsSchema.IsHeader(line):
		if t.Header < 0 {
			t.Header = i
		}
	default:
		if row, ok := ParseMealRow(line); ok {
			t.Rows = append(t.Rows, row)
			t.RowLines = append(t.RowLines, i)
		}
	}
}

// isOpener reports whether a horizontal rule at line i is directly
// followed by a meal heading.
func (d *Document) isOpener(i int) bool {
	return i+1 < len(d.Lines) && isRule(d.Lines[i]) && isMealHeading(d.Lines[i+1])
}

func (d *Document) inTable(i int) bool {
	return d.Table != nil && d.Table.Range.Contains(i)
}

// String joins the lines back into text.
func (d *Document) String() string {
	return strings.Join(d.Lines, "\n")
}

// Day returns the first section for date, or nil.
func (d *Document) Day(date string) *DaySection {
	for _, day := range d.Days {
		if day.Date == date {
			return day
		}
	}
	return nil
}

// Block returns the first block carrying id, or nil.
func (d *Document) Block(id string) *MealBlock {
	for _, b := range d.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// TableIDs returns ids referenced inside the meals table region.
func (d *Document) TableIDs() []string {
	if d.Table == nil {
		return nil
	}
	return idsIn(d.Lines[d.Table.Range.Start:d.Table.Range.End])
}

// BlockIDs returns ids referenced before the meals table region. Without
// a meals table every id in the note counts.
func (d *Document) BlockIDs() []string {
	if d.Table == nil {
		return idsIn(d.Lines)
	}
	return idsIn(d.Lines[:d.Table.Range.Start])
}

func idsIn(lines []string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, line := range lines {
		for _, id := range lineMealIDs(line) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// dropLines returns the document text without the listed lines.
func (d *Document) dropLines(drop map[int]bool) string {
	kept := make([]string, 0, len(d.Lines))
	for i, line := range d.Lines {
		if !drop[i] {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var (
	whitespaceLine = regexp.MustCompile(`(?m)^[ \t\r\f\v]+$`)
	blankRun       = regexp.MustCompile(`\n{3,}`)
)

// collapseBlankLines clears whitespace-only lines and folds runs of blank
// lines into one.
func collapseBlankLines(text string) string {
	text = whitespaceLine.ReplaceAllString(text, "")
	return blankRun.ReplaceAllString(text, "\n\n")
}

func trimRightSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
