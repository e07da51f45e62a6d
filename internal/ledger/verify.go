package ledger

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Report is the read-only health check of a note.
type Report struct {
	HasMealsTable bool `json:"has_meals_table"`

	// MarkerRows counts meals table lines carrying an id marker.
	MarkerRows int `json:"marker_rows"`

	// RenderedRows counts body rows of the meals table once rendered.
	RenderedRows  int  `json:"rendered_rows"`
	RefreshButton bool `json:"refresh_button"`

	StaleRows    []string `json:"stale_rows,omitempty"`
	OrphanBlocks []string `json:"orphan_blocks,omitempty"`

	// DanglingButtons are delete buttons whose id has no meal block.
	DanglingButtons []string `json:"dangling_buttons,omitempty"`
	Problems        []string `json:"problems,omitempty"`
}

// OK reports whether no problem was found.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Verify renders the note and checks that the meals table still renders
// as a table, that table rows and blocks agree, and that every delete
// button points at a block. It never modifies text.
func Verify(text string) (Report, error) {
	var rep Report
	doc := Parse(text)

	sync := Sync(text)
	rep.StaleRows = sync.StaleRows
	rep.OrphanBlocks = sync.OrphanBlocks
	for _, id := range sync.StaleRows {
		rep.Problems = append(rep.Problems, fmt.Sprintf("table row %s has no meal block", id))
	}
	for _, id := range sync.OrphanBlocks {
		rep.Problems = append(rep.Problems, fmt.Sprintf("meal block %s has no table row", id))
	}

	if doc.Table != nil {
		rep.HasMealsTable = true
		region := doc.Lines[doc.Table.Range.Start:doc.Table.Range.End]
		for _, line := range region {
			if strings.HasPrefix(trimCR(line), "|") && len(lineMealIDs(line)) > 0 {
				rep.MarkerRows++
			}
		}
		rendered, err := render(strings.Join(region, "\n"))
		if err != nil {
			return rep, err
		}
		rep.RenderedRows = rendered.Find("table tbody tr").Length()
		rep.RefreshButton = rendered.Find("button.ca-refresh-table-btn").Length() > 0
		if rendered.Find("table").Length() == 0 {
			rep.Problems = append(rep.Problems, "meals table does not render as a table")
		}
		if rep.RenderedRows != rep.MarkerRows {
			rep.Problems = append(rep.Problems,
				fmt.Sprintf("meals table renders %d rows for %d marked lines", rep.RenderedRows, rep.MarkerRows))
		}
	}

	page, err := render(text)
	if err != nil {
		return rep, err
	}
	blocks := make(map[string]struct{})
	for _, b := range doc.Blocks {
		if b.ID != "" {
			blocks[b.ID] = struct{}{}
		}
	}
	page.Find("button.ca-delete-meal-btn").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-meal-id")
		if !ok {
			return
		}
		if _, found := blocks[id]; !found {
			rep.DanglingButtons = append(rep.DanglingButtons, id)
			rep.Problems = append(rep.Problems, fmt.Sprintf("delete button %s has no meal block", id))
		}
	})
	return rep, nil
}

func render(src string) (*goquery.Document, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	page, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse rendered note: %w", err)
	}
	return page, nil
}
