package capture

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"foodlog/internal/ledger"
	"foodlog/internal/macros"
)

const snippetLength = 180

var (
	per100Keys  = []string{"per_100g", "per100", "base"}
	itemKeys    = []string{"item", "description"}
	portionKeys = []string{"portion_g", "portion"}
	mealIDKeys  = []string{"meal_id", "mealId"}
)

// EntryFromPayload builds a meal entry from an estimator reply. Fields come
// from the configured JSONPath expressions first, then from the usual keys.
// Per-100g values fall back to a search of the whole reply. A reply without
// any macro value fails with ErrNoMacrosFound.
func (s *Service) EntryFromPayload(raw json.RawMessage) (ledger.MealEntry, error) {
	payload := macros.ParsePayload(raw)
	// A reply that is not JSON locates nothing and falls through to the
	// text strategies.
	located, _ := s.fields.Locate(raw)

	now := s.clock()
	entry := ledger.MealEntry{Timestamp: now}

	entry.Item = located.Item
	if entry.Item == "" {
		if v, ok := firstString(payload, itemKeys...); ok {
			entry.Item = v
		}
	}

	entry.PortionGrams = positive(located.Portion)
	if entry.PortionGrams == nil {
		if v, ok := firstPresent(payload, portionKeys...); ok {
			entry.PortionGrams = positive(macros.Number(v))
		}
	}

	switch {
	case located.Per100g != nil:
		entry.Per100g = macros.Extract(*located.Per100g)
	default:
		if v, ok := firstPresent(payload, per100Keys...); ok {
			entry.Per100g = macros.Extract(v)
		}
	}
	if !entry.Per100g.HasAny() {
		entry.Per100g = macros.Extract(payload)
	}

	switch {
	case located.Totals != nil:
		t := macros.Extract(*located.Totals)
		entry.PortionTotals = &t
	default:
		if v, ok := firstPresent(payload, "portion_totals"); ok && v.IsObject() {
			t := macros.Extract(v)
			entry.PortionTotals = &t
		}
	}

	if !entry.HasMacros() {
		return ledger.MealEntry{}, fmt.Errorf("%w (snippet: %s)", ErrNoMacrosFound, macros.Snippet(payload, snippetLength))
	}

	if v, ok := firstString(payload, "comment"); ok {
		entry.Comment = v
	}
	if v, ok := firstString(payload, mealIDKeys...); ok {
		entry.ID = v
	} else {
		entry.ID = ledger.NewMealID(now)
	}
	return entry, nil
}

// firstPresent returns the first non-null property among keys.
func firstPresent(obj gjson.Result, keys ...string) (gjson.Result, bool) {
	for _, key := range keys {
		if v, ok := macros.Lookup(obj, key); ok && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// firstString returns the first non-blank string property among keys.
func firstString(obj gjson.Result, keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := macros.Lookup(obj, key)
		if !ok || v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			return s, true
		}
	}
	return "", false
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// ApplyPortion sets portion_g on raw and recomputes portion_totals from its
// per-100g values.
func ApplyPortion(raw json.RawMessage, grams float64) (json.RawMessage, error) {
	if grams <= 0 {
		return nil, fmt.Errorf("portion must be positive, got %g", grams)
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	var per macros.Set
	if v, ok := firstPresent(macros.ParsePayload(raw), per100Keys...); ok {
		per = macros.Extract(v)
	}
	if !per.HasAny() {
		return nil, fmt.Errorf("%w: payload has no per-100g values", ErrNoMacrosFound)
	}
	totals := per.Scale(grams)
	obj["portion_g"] = grams
	obj["portion_totals"] = map[string]*float64{
		"calories":      totals.Calories,
		"proteins":      totals.Proteins,
		"fats":          totals.Fats,
		"carbohydrates": totals.Carbohydrates,
	}
	return json.Marshal(obj)
}

// MergePayloads overlays the top-level properties of next onto base.
// Either side may be empty.
func MergePayloads(base, next json.RawMessage) (json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	for _, raw := range []json.RawMessage{base, next} {
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("merge payloads: %w", err)
		}
		for k, v := range obj {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func decodeObject(raw json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, nil
}
