package ledger

import (
	"regexp"
	"strings"

	"foodlog/internal/macros"
)

// EnsureMealsTable appends an empty meals table when the note has none.
// A start marker without a matching end marker is discarded first.
func EnsureMealsTable(text string) (string, bool) {
	doc := Parse(text)
	if doc.Table != nil {
		return text, false
	}
	text = strings.ReplaceAll(text, MealsTableStart, "")
	table := strings.Join(mealsTableLines(), "\n") + "\n"
	prefix := trimRightSpace(text)
	if prefix == "" {
		return table, true
	}
	return prefix + "\n\n" + table, true
}

// InsertMeal writes the block for e directly before the meals table and
// its row directly under the table separator, creating the table when
// needed. A note that already references e.ID is returned unchanged.
func InsertMeal(text string, e MealEntry) (string, bool) {
	if strings.Contains(text, MealMarker(e.ID)) {
		return text, false
	}
	text, _ = EnsureMealsTable(text)

	idx := strings.Index(text, MealsTableStart)
	block := RenderBlock(e)
	if prefix := trimRightSpace(text[:idx]); prefix != "" {
		text = prefix + "\n\n" + block + "\n\n" + text[idx:]
	} else {
		text = block + "\n\n" + text[idx:]
	}

	doc := Parse(text)
	if doc.Table == nil || doc.Table.Separator < 0 {
		out, _ := RebuildMealsTable(text)
		return out, true
	}
	sep := doc.Table.Separator
	lines := make([]string, 0, len(doc.Lines)+1)
	lines = append(lines, doc.Lines[:sep+1]...)
	lines = append(lines, MealRowFrom(e).Render())
	lines = append(lines, doc.Lines[sep+1:]...)
	return strings.Join(lines, "\n"), true
}

var (
	clockPattern         = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)
	blockPortionPattern  = regexp.MustCompile(`\*\*Порция:\*\*\s*(\d+(?:[.,]\d+)?)\s*г`)
	blockTotalsPattern   = regexp.MustCompile(`\*\*Итого за порцию:\*\*\s*(\S+)\s*ккал\s*\(\s*Б\s*(\S+)\s*/\s*Ж\s*(\S+)\s*/\s*У\s*([^)\s]+)\s*\)`)
	blockPer100Pattern   = regexp.MustCompile(`\*\*На 100 г:\*\*\s*(\S+)\s*ккал\s*/\s*Б\s*(\S+)\s*/\s*Ж\s*(\S+)\s*/\s*У\s*(\S+)`)
	blockItemLinePattern = regexp.MustCompile(`^\*\*Блюдо:\*\*\s*(.*)$`)
)

// BlockEntry reads a meal block back into an entry. Values the block does
// not show stay unknown; the timestamp is not recovered.
func (d *Document) BlockEntry(b *MealBlock) MealEntry {
	e := MealEntry{ID: b.ID}
	body := strings.Join(d.Lines[b.Range.Start:b.Range.End], "\n")
	for _, line := range d.Lines[b.Range.Start:b.Range.End] {
		if m := blockItemLinePattern.FindStringSubmatch(trimCR(line)); m != nil {
			e.Item = strings.TrimSpace(m[1])
			break
		}
	}
	if m := blockPer100Pattern.FindStringSubmatch(body); m != nil {
		e.Per100g = setFromStrings(m[1:])
	}
	if m := blockPortionPattern.FindStringSubmatch(body); m != nil {
		e.PortionGrams = macros.ParseNumber(m[1])
	}
	if m := blockTotalsPattern.FindStringSubmatch(body); m != nil {
		t := setFromStrings(m[1:])
		e.PortionTotals = &t
	} else {
		e.PortionTotals = &macros.Set{}
	}
	return e
}

func setFromStrings(v []string) macros.Set {
	return macros.Set{
		Calories:      macros.ParseNumber(v[0]),
		Proteins:      macros.ParseNumber(v[1]),
		Fats:          macros.ParseNumber(v[2]),
		Carbohydrates: macros.ParseNumber(v[3]),
	}
}

// BlockRow renders the meals table row for block b.
func (d *Document) BlockRow(b *MealBlock) MealRow {
	e := d.BlockEntry(b)
	row := MealRow{
		ID:      b.ID,
		Item:    e.DisplayItem(),
		Portion: e.PortionGrams,
		Totals:  e.Totals(),
	}
	if m := clockPattern.FindStringSubmatch(b.Stamp); m != nil {
		row.Time = m[1]
	}
	return row
}

// RebuildMealsTable regenerates the meals table from the blocks preceding
// it, newest first. A note without a meals table is left alone.
func RebuildMealsTable(text string) (string, bool) {
	doc := Parse(text)
	if doc.Table == nil {
		return text, false
	}
	var rows []string
	for i := len(doc.Blocks) - 1; i >= 0; i-- {
		b := doc.Blocks[i]
		if b.ID == "" || b.Range.End > doc.Table.Range.Start {
			continue
		}
		rows = append(rows, doc.BlockRow(b).Render())
	}
	head := mealsTableLines()
	region := make([]string, 0, len(head)+len(rows))
	region = append(region, head[:len(head)-1]...)
	region = append(region, rows...)
	region = append(region, head[len(head)-1])

	out := strings.Join(splice(doc.Lines, doc.Table.Range, region), "\n")
	return out, out != text
}

// BaseRowFrom builds the base table row for an entry.
func BaseRowFrom(e MealEntry) BaseRow {
	return BaseRow{
		Time:    e.Clock(),
		Item:    e.DisplayItem(),
		Per100g: e.Per100g,
		Portion: e.PortionGrams,
		Comment: e.Comment,
	}
}

// AppendDayEntry adds e to the base table of its day section, creating
// the section when needed, then recomputes that section. A row identical
// to an existing one is not added twice.
func AppendDayEntry(text string, e MealEntry, agg Aggregator) string {
	date := e.Date()
	doc := Parse(text)
	if doc.Day(date) == nil {
		text = insertDaySection(doc, date)
		doc = Parse(text)
	}
	day := doc.Day(date)
	row := BaseRowFrom(e).Render()

	var lines []string
	switch {
	case day.Base == nil:
		insert := []string{"", baseTitle, BaseSchema.Header, BaseSchema.Separator, row}
		at := day.Heading + 1
		lines = splice(doc.Lines, Range{Start: at, End: at}, insert)
	case hasLine(doc.Lines[day.Base.Range.Start:day.Base.Range.End], row):
		lines = doc.Lines
	default:
		at := day.Base.Range.End
		lines = splice(doc.Lines, Range{Start: at, End: at}, []string{row})
	}
	out, _ := agg.ApplyDay(strings.Join(lines, "\n"), date)
	return out
}

func hasLine(lines []string, want string) bool {
	for _, line := range lines {
		if trimCR(line) == want {
			return true
		}
	}
	return false
}

// insertDaySection adds an empty section for date after the last day
// section, else before the first meal block or meals table, else at the
// end of the note.
func insertDaySection(doc *Document, date string) string {
	section := strings.Join(daySectionLines(date), "\n")
	at := -1
	switch {
	case len(doc.Days) > 0:
		at = doc.Days[len(doc.Days)-1].Range.End
	case len(doc.Blocks) > 0:
		at = doc.Blocks[0].Range.Start
	case doc.Table != nil:
		at = doc.Table.Range.Start
	}
	if at < 0 || at >= len(doc.Lines) {
		prefix := trimRightSpace(doc.String())
		if prefix == "" {
			return section + "\n"
		}
		return prefix + "\n\n" + section + "\n"
	}
	before := trimRightSpace(strings.Join(doc.Lines[:at], "\n"))
	after := strings.Join(doc.Lines[at:], "\n")
	if before == "" {
		return section + "\n\n" + after
	}
	return before + "\n\n" + section + "\n\n" + after
}

// AppendNote appends a stamped free-form block. Empty text starts a new
// note with a title.
func AppendNote(text, stamp, content string) string {
	block := "\n\n---\n**" + stamp + "**\n\n" + content + "\n"
	if text == "" {
		return NoteTitle + "\n" + block
	}
	return text + block
}
