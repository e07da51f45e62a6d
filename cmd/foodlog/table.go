package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"foodlog/internal/entrystore"
	"foodlog/internal/macros"
)

// column describes one rendered table column.
type column struct {
	title   string
	numeric bool
	value   func(entrystore.Entry) string
}

func totalsColumn(title string, pick func(macros.Set) *float64) column {
	return column{title: title, numeric: true, value: func(e entrystore.Entry) string {
		return macros.FormatCell(pick(e.Meal.Totals()))
	}}
}

var entryColumns = []column{
	{title: "ID", value: func(e entrystore.Entry) string { return e.Meal.ID }},
	{title: "Time", value: func(e entrystore.Entry) string { return e.Meal.Stamp() }},
	{title: "Item", value: func(e entrystore.Entry) string { return e.Meal.DisplayItem() }},
	{title: "g", numeric: true, value: func(e entrystore.Entry) string { return macros.FormatCell(e.Meal.PortionGrams) }},
	totalsColumn("kcal", func(s macros.Set) *float64 { return s.Calories }),
	totalsColumn("P", func(s macros.Set) *float64 { return s.Proteins }),
	totalsColumn("F", func(s macros.Set) *float64 { return s.Fats }),
	totalsColumn("C", func(s macros.Set) *float64 { return s.Carbohydrates }),
}

// renderEntries draws stored entries as a rounded table with portion totals.
func renderEntries(entries []entrystore.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(entryColumns))
	configs := make([]table.ColumnConfig, len(entryColumns))
	for i, col := range entryColumns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, e := range entries {
		row := make(table.Row, len(entryColumns))
		for i, col := range entryColumns {
			row[i] = col.value(e)
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
