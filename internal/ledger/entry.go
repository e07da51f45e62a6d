package ledger

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"foodlog/internal/macros"
)

// StampLayout formats meal timestamps in headings and rows.
const StampLayout = "2006-01-02 15:04:05"

// DateLayout formats day section keys.
const DateLayout = "2006-01-02"

// MealEntry is one recorded meal.
type MealEntry struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Item          string      `json:"item"`
	PortionGrams  *float64    `json:"portion_g,omitempty"`
	Per100g       macros.Set  `json:"per_100g"`
	PortionTotals *macros.Set `json:"portion_totals,omitempty"`
	Comment       string      `json:"comment,omitempty"`
}

// NewMealID returns a fresh MID-<base36 millis>-<6 base36 chars> token.
func NewMealID(now time.Time) string {
	u := uuid.New()
	tail := strconv.FormatUint(binary.BigEndian.Uint64(u[8:]), 36)
	if len(tail) < 6 {
		tail = strings.Repeat("0", 6-len(tail)) + tail
	}
	return "MID-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + tail[len(tail)-6:]
}

// Stamp renders the entry time as shown in meal headings.
func (e MealEntry) Stamp() string {
	return e.Timestamp.Format(StampLayout)
}

// Date returns the day section key for the entry.
func (e MealEntry) Date() string {
	return e.Timestamp.Format(DateLayout)
}

// Clock returns HH:MM for table rows.
func (e MealEntry) Clock() string {
	return e.Timestamp.Format("15:04")
}

// DisplayItem is the item name as written into the note.
func (e MealEntry) DisplayItem() string {
	item := strings.TrimSpace(norm.NFC.String(e.Item))
	if item == "" {
		return macros.Placeholder
	}
	return item
}

// Totals returns the explicit portion totals when present, otherwise the
// per-100g values scaled to the portion.
func (e MealEntry) Totals() macros.Set {
	if e.PortionTotals != nil {
		return *e.PortionTotals
	}
	return e.Per100g.ScalePortion(e.PortionGrams)
}

// HasMacros reports whether the entry carries any macro value.
func (e MealEntry) HasMacros() bool {
	return e.Per100g.HasAny() || (e.PortionTotals != nil && e.PortionTotals.HasAny())
}

func formatGrams(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}
