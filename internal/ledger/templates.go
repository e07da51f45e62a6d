package ledger

import (
	"fmt"
	"strings"

	"foodlog/internal/macros"
)

const (
	mealHeadingPrefix = "#### Приём пищи"
	mealHeadingSep    = " — "

	itemLabel          = "**Блюдо:**"
	per100Label        = "**На 100 г:**"
	portionLabel       = "**Порция:**"
	portionTotalsLabel = "**Итого за порцию:**"
	totalsLabel        = "**Итого сейчас:**"

	refreshButton = `<button class="ca-refresh-table-btn">Обновить таблицу</button>`

	baseTitle    = "### База (на 100 г)"
	portionTitle = "### Итоги (по порции)"

	// NoteTitle heads a note created from scratch.
	NoteTitle = "# Food Log"
)

func deleteButton(id string) string {
	return fmt.Sprintf(`<button class="ca-delete-meal-btn" data-meal-id="%s">Удалить приём</button>`, id)
}

// RenderBlock renders the meal block for e. The block starts with its
// horizontal rule and carries no surrounding blank lines.
func RenderBlock(e MealEntry) string {
	lines := []string{
		"---",
		mealHeadingPrefix + mealHeadingSep + e.Stamp(),
		MealMarker(e.ID),
		itemLabel + " " + e.DisplayItem(),
		fmt.Sprintf("%s %s ккал / Б %s / Ж %s / У %s", per100Label,
			macros.FormatFixed(e.Per100g.Calories), macros.FormatFixed(e.Per100g.Proteins),
			macros.FormatFixed(e.Per100g.Fats), macros.FormatFixed(e.Per100g.Carbohydrates)),
	}
	if e.PortionGrams != nil {
		t := e.Totals()
		lines = append(lines,
			fmt.Sprintf("%s %s г", portionLabel, formatGrams(*e.PortionGrams)),
			fmt.Sprintf("%s %s ккал (Б %s / Ж %s / У %s)", portionTotalsLabel,
				macros.FormatFixed(t.Calories), macros.FormatFixed(t.Proteins),
				macros.FormatFixed(t.Fats), macros.FormatFixed(t.Carbohydrates)),
		)
	}
	lines = append(lines, "", deleteButton(e.ID))
	return strings.Join(lines, "\n")
}

// emptyTotalsLine is the placeholder written into a fresh day section.
var emptyTotalsLine = fmt.Sprintf("%s %s ккал / Б %s / Ж %s / У %s",
	totalsLabel, macros.Placeholder, macros.Placeholder, macros.Placeholder, macros.Placeholder)

func daySectionLines(date string) []string {
	return []string{
		"## " + date,
		TotalsMarker(date),
		emptyTotalsLine,
		"",
		baseTitle,
		BaseSchema.Header,
		BaseSchema.Separator,
		"",
		portionTitle,
		PortionSchema.Header,
		PortionSchema.Separator,
	}
}

func mealsTableLines() []string {
	return []string{
		MealsTableStart,
		"",
		refreshButton,
		"",
		MealsSchema.Header,
		MealsSchema.Separator,
		MealsTableEnd,
	}
}
