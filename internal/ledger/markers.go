package ledger

import (
	"regexp"
	"strings"
)

// Marker tokens. They are part of the on-disk format and must be preserved
// byte for byte.
const (
	MealsTableStart = "<!--MEALS_TABLE_START-->"
	MealsTableEnd   = "<!--MEALS_TABLE_END-->"

	mealMarkerPrefix   = "<!--MEAL_ID:"
	totalsMarkerPrefix = "<!--DAILY_TOTALS:"
	markerSuffix       = "-->"
)

var (
	mealMarkerPattern = regexp.MustCompile(`<!--MEAL_ID:([A-Za-z0-9_-]+)-->`)
	dayHeadingPattern = regexp.MustCompile(`^##\s+(\d{4}-\d{2}-\d{2})\s*$`)
	ruleLinePattern   = regexp.MustCompile(`^---\s*$`)
)

// MealMarker returns the hidden marker binding a meal block and its row.
func MealMarker(id string) string {
	return mealMarkerPrefix + id + markerSuffix
}

// TotalsMarker returns the marker preceding a day's totals line.
func TotalsMarker(date string) string {
	return totalsMarkerPrefix + date + markerSuffix
}

// MealIDs returns the distinct meal ids referenced in text, in order of
// first appearance.
func MealIDs(text string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range mealMarkerPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids
}

func lineMealIDs(line string) []string {
	if !strings.Contains(line, mealMarkerPrefix) {
		return nil
	}
	var ids []string
	for _, m := range mealMarkerPattern.FindAllStringSubmatch(line, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

func trimCR(line string) string {
	return strings.TrimSuffix(line, "\r")
}

func isRule(line string) bool {
	return ruleLinePattern.MatchString(trimCR(line))
}

func isMealHeading(line string) bool {
	return strings.HasPrefix(line, mealHeadingPrefix)
}

func isLevel2Heading(line string) bool {
	return strings.HasPrefix(line, "## ")
}

func dayHeadingDate(line string) (string, bool) {
	m := dayHeadingPattern.FindStringSubmatch(trimCR(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
