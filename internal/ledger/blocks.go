package ledger

import (
	"strings"
)

// Removal reports the outcome of removing a meal by id.
type Removal struct {
	Text string
	// Removed is true when a meal block was excised.
	Removed bool
	// RowRemoved is true when a meals table row was dropped.
	RowRemoved bool
}

// RemoveBlock excises the meal block carrying id. When the marker cannot
// be found, or no block boundary can be located around it, the text is
// returned unchanged and Removed is false.
func RemoveBlock(text, id string) Removal {
	doc := Parse(text)
	r, ok := doc.blockBounds(id)
	if !ok {
		return Removal{Text: text}
	}
	drop := make(map[int]bool, r.End-r.Start)
	for i := r.Start; i < r.End; i++ {
		drop[i] = true
	}
	return Removal{Text: collapseBlankLines(doc.dropLines(drop)), Removed: true}
}

// DeleteMeal removes both the block and the meals table row for id.
func DeleteMeal(text, id string) Removal {
	doc := Parse(text)
	drop := make(map[int]bool)
	var res Removal
	if r, ok := doc.blockBounds(id); ok {
		for i := r.Start; i < r.End; i++ {
			drop[i] = true
		}
		res.Removed = true
	}
	if doc.Table != nil {
		marker := MealMarker(id)
		for i := doc.Table.Range.Start; i < doc.Table.Range.End; i++ {
			if strings.Contains(doc.Lines[i], marker) {
				drop[i] = true
				res.RowRemoved = true
			}
		}
	}
	if len(drop) == 0 {
		res.Text = text
		return res
	}
	res.Text = collapseBlankLines(doc.dropLines(drop))
	return res
}

// blockBounds locates the lines of the block carrying id.
//
// The block starts at the nearest opener (rule plus meal heading) before
// the marker. Failing that, it starts at the nearest meal heading, pulled
// up to a rule when only blank lines separate the two. It ends before the
// next opener or meal heading, the meals table, a day heading, or the end
// of the note. Neither search crosses the meals table.
func (d *Document) blockBounds(id string) (Range, bool) {
	marker := MealMarker(id)
	m := -1
	for i, line := range d.Lines {
		if !d.inTable(i) && strings.Contains(line, marker) {
			m = i
			break
		}
	}
	if m < 0 {
		return Range{}, false
	}

	floor := 0
	if d.Table != nil && d.Table.Range.End <= m {
		floor = d.Table.Range.End
	}

	start := -1
	for i := m - 1; i >= floor; i-- {
		if d.isOpener(i) {
			start = i
			break
		}
	}
	if start < 0 {
		heading := -1
		for i := m; i >= floor; i-- {
			if isMealHeading(d.Lines[i]) && (i < m || headingPrecedesMarker(d.Lines[i], marker)) {
				heading = i
				break
			}
		}
		if heading < 0 {
			return Range{}, false
		}
		start = heading
		j := heading - 1
		for j >= floor && isBlank(d.Lines[j]) {
			j--
		}
		if j >= floor && isRule(d.Lines[j]) {
			start = j
		}
	}

	end := len(d.Lines)
	for i := m + 1; i < len(d.Lines); i++ {
		if d.isOpener(i) || isMealHeading(d.Lines[i]) || isLevel2Heading(d.Lines[i]) {
			end = i
			break
		}
		if d.Table != nil && i == d.Table.Range.Start {
			end = i
			break
		}
	}
	return Range{Start: start, End: end}, true
}

func headingPrecedesMarker(line, marker string) bool {
	return strings.Index(line, mealHeadingPrefix) < strings.Index(line, marker)
}
