package macros

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Placeholder is rendered for unknown values.
const Placeholder = "—"

// FormatFixed renders v with exactly one decimal place.
func FormatFixed(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return decimal.NewFromFloat(*v).StringFixed(1)
}

// FormatCell renders v with one decimal place and no trailing ".0".
func FormatCell(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return decimal.NewFromFloat(*v).Round(1).String()
}

// FormatRounded renders v rounded half up to an integer.
func FormatRounded(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatInt(int64(RoundHalfUp(*v)), 10)
}

// RoundHalfUp rounds towards positive infinity on ties.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Describe renders a per-100g set for humans.
func Describe(per Set) string {
	return fmt.Sprintf("%s ккал / Б %s г / Ж %s г / У %s г (на 100 г)",
		FormatFixed(per.Calories), FormatFixed(per.Proteins), FormatFixed(per.Fats), FormatFixed(per.Carbohydrates))
}
