package entrystore

import (
	"database/sql"
	"encoding/json"
	"time"

	"foodlog/internal/ledger"
	"foodlog/internal/macros"
)

const insertColumns = "meal_id, eaten_at, day, item, portion_g, kcal_100, protein_100, fat_100, carbs_100, has_totals, kcal, protein, fat, carbs, comment, payload_json, recorded_at"

const entryColumns = "seq, " + insertColumns

func entryArgs(e Entry, recorded string) []any {
	m := e.Meal
	var totals macros.Set
	hasTotals := 0
	if m.PortionTotals != nil {
		totals = *m.PortionTotals
		hasTotals = 1
	}
	return []any{
		m.ID,
		m.Timestamp.Format(timeLayout),
		m.Date(),
		m.Item,
		nullableFloat(m.PortionGrams),
		nullableFloat(m.Per100g.Calories),
		nullableFloat(m.Per100g.Proteins),
		nullableFloat(m.Per100g.Fats),
		nullableFloat(m.Per100g.Carbohydrates),
		hasTotals,
		nullableFloat(totals.Calories),
		nullableFloat(totals.Proteins),
		nullableFloat(totals.Fats),
		nullableFloat(totals.Carbohydrates),
		nullableString(m.Comment),
		nullableString(string(e.Payload)),
		recorded,
	}
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		seq                                  int64
		mealID, eatenRaw, day, item          string
		portion                              sql.NullFloat64
		kcal100, protein100, fat100, carb100 sql.NullFloat64
		hasTotals                            int
		kcal, protein, fat, carbs            sql.NullFloat64
		comment, payload                     sql.NullString
		recordedRaw                          string
	)
	if err := scanner.Scan(
		&seq, &mealID, &eatenRaw, &day, &item, &portion,
		&kcal100, &protein100, &fat100, &carb100,
		&hasTotals, &kcal, &protein, &fat, &carbs,
		&comment, &payload, &recordedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		Seq:        seq,
		RecordedAt: parseTime(recordedRaw),
		Meal: ledger.MealEntry{
			ID:           mealID,
			Timestamp:    parseTime(eatenRaw),
			Item:         item,
			PortionGrams: floatPtr(portion),
			Per100g: macros.Set{
				Calories:      floatPtr(kcal100),
				Proteins:      floatPtr(protein100),
				Fats:          floatPtr(fat100),
				Carbohydrates: floatPtr(carb100),
			},
			Comment: comment.String,
		},
	}
	if hasTotals != 0 {
		entry.Meal.PortionTotals = &macros.Set{
			Calories:      floatPtr(kcal),
			Proteins:      floatPtr(protein),
			Fats:          floatPtr(fat),
			Carbohydrates: floatPtr(carbs),
		}
	}
	if payload.Valid && payload.String != "" {
		entry.Payload = json.RawMessage(payload.String)
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
