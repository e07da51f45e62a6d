package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"foodlog/internal/capture"
	"foodlog/internal/estimator"
	"foodlog/internal/macros"
)

type mealInput struct {
	photo       string
	text        string
	item        string
	description string
	language    string
}

func (in *mealInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.photo, "photo", "p", "", "Photo of the meal")
	cmd.Flags().StringVarP(&in.text, "text", "t", "", "Free-text meal description")
	cmd.Flags().StringVar(&in.item, "item", "", "Meal name")
	cmd.Flags().StringVar(&in.description, "description", "", "Meal details (ingredients, cooking)")
	cmd.Flags().StringVar(&in.language, "lang", capture.DefaultLanguage, "Language for text estimates")
}

func (in *mealInput) request() (estimator.Request, error) {
	if in.photo != "" {
		data, err := os.ReadFile(in.photo)
		if err != nil {
			return estimator.Request{}, fmt.Errorf("read photo: %w", err)
		}
		return estimator.PhotoRequest(data, mime.TypeByExtension(strings.ToLower(filepath.Ext(in.photo)))), nil
	}
	req := estimator.Request{
		Mode:        estimator.ModeText,
		Text:        strings.TrimSpace(in.text),
		Item:        strings.TrimSpace(in.item),
		Description: strings.TrimSpace(in.description),
		Language:    in.language,
	}
	if req.Text == "" && req.Item == "" && req.Description == "" {
		return estimator.Request{}, errors.New("a photo (--photo) or a description (--text, --item, --description) is required")
	}
	return req, nil
}

// estimate runs the first step for in and saves the session.
func (in *mealInput) estimate(ctx context.Context, svc *capture.Service) (json.RawMessage, error) {
	req, err := in.request()
	if err != nil {
		return nil, err
	}
	if req.Mode == estimator.ModeText {
		return svc.EstimateText(ctx, req.Item, firstNonEmpty(req.Description, req.Text), req.Language)
	}
	return svc.Estimate(ctx, req)
}

func newMealCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newEstimateCommand(ctx),
		newCorrectCommand(ctx),
		newPortionCommand(ctx),
		newExportCommand(ctx),
		newDeleteCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var in mealInput
	var portion float64
	var at string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Estimate a meal and write it to the note in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseAt(at)
			if err != nil {
				return err
			}
			svc, err := ctx.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			raw, err := in.estimate(cmd.Context(), svc)
			if err != nil {
				return err
			}
			if portion > 0 {
				if raw, err = capture.ApplyPortion(raw, portion); err != nil {
					return err
				}
			}
			res, err := svc.Export(cmd.Context(), raw, when)
			if err != nil {
				return explainNoteError(err)
			}
			return printExport(cmd, res, asJSON)
		},
	}
	in.bind(cmd)
	cmd.Flags().Float64Var(&portion, "portion", 0, "Portion weight in grams")
	cmd.Flags().StringVar(&at, "at", "", "Meal time (RFC3339 or HH:MM today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var in mealInput
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate a meal and keep it as the session in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			raw, err := in.estimate(cmd.Context(), svc)
			if err != nil {
				return err
			}
			return printPayload(cmd, svc, raw, asJSON)
		},
	}
	in.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw estimate as JSON")
	return cmd
}

func newCorrectCommand(ctx *commandContext) *cobra.Command {
	var portion float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "correct [instruction...]",
		Short: "Ask the estimator to revise the session in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			raw, err := svc.Correct(cmd.Context(), strings.Join(args, " "), portion)
			if err != nil {
				return explainSessionError(err)
			}
			return printPayload(cmd, svc, raw, asJSON)
		},
	}
	cmd.Flags().Float64Var(&portion, "portion", 0, "Portion weight in grams to send with the correction")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw estimate as JSON")
	return cmd
}

func newPortionCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "portion <grams>",
		Short: "Set the portion weight of the session in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grams := macros.ParseNumber(args[0])
			if grams == nil || *grams <= 0 {
				return fmt.Errorf("invalid portion %q: want a positive number of grams", args[0])
			}
			svc, err := ctx.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			raw, err := svc.ApplyPortion(cmd.Context(), *grams)
			if err != nil {
				return explainSessionError(err)
			}
			return printPayload(cmd, svc, raw, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the raw estimate as JSON")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var at string
	var offline bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the session in progress to the note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseAt(at)
			if err != nil {
				return err
			}
			svc, err := ctx.service(cmd.Context(), !offline)
			if err != nil {
				return err
			}
			raw, err := svc.Session(cmd.Context())
			if err != nil {
				return explainSessionError(err)
			}
			res, err := svc.Export(cmd.Context(), raw, when)
			if err != nil {
				return explainNoteError(err)
			}
			return printExport(cmd, res, asJSON)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Meal time (RFC3339 or HH:MM today)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the final estimator pass and export the session as is")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <meal-id>",
		Short: "Remove a meal block, its table row and its stored entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			res, err := svc.DeleteMeal(cmd.Context(), args[0])
			if err != nil {
				return explainNoteError(err)
			}
			out := cmd.OutOrStdout()
			if !res.Found() {
				fmt.Fprintf(out, "Meal %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Meal %s deleted (block: %s, row: %s, stored entry: %s)\n",
				args[0], yesNo(res.Removed), yesNo(res.RowRemoved), yesNo(res.StoreRemoved))
			return nil
		},
	}
}

func printPayload(cmd *cobra.Command, svc *capture.Service, raw json.RawMessage, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, raw)
	}
	entry, err := svc.EntryFromPayload(raw)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", entry.DisplayItem())
	fmt.Fprintf(out, "  %s\n", macros.Describe(entry.Per100g))
	if entry.PortionGrams != nil {
		t := entry.Totals()
		fmt.Fprintf(out, "  Portion %s g: %s kcal (P %s / F %s / C %s)\n",
			macros.FormatCell(entry.PortionGrams),
			macros.FormatFixed(t.Calories), macros.FormatFixed(t.Proteins),
			macros.FormatFixed(t.Fats), macros.FormatFixed(t.Carbohydrates))
	}
	if msg := (estimator.Response{Raw: raw}).Message(); msg != "" {
		fmt.Fprintln(out, msg)
	}
	fmt.Fprintln(out, "Run `foodlog export` to write it to the note.")
	return nil
}

func printExport(cmd *cobra.Command, res capture.ExportResult, asJSON bool) error {
	if asJSON {
		t := res.Entry.Totals()
		return writeJSON(cmd, map[string]any{
			"meal_id":   res.Entry.ID,
			"mode":      res.Mode,
			"changed":   res.Changed,
			"item":      res.Entry.DisplayItem(),
			"timestamp": res.Entry.Stamp(),
			"portion_g": res.Entry.PortionGrams,
			"totals":    t,
		})
	}
	out := cmd.OutOrStdout()
	if !res.Changed {
		fmt.Fprintf(out, "Meal %s already in the note\n", res.Entry.ID)
		return nil
	}
	fmt.Fprintf(out, "Logged %s at %s (%s kcal) as %s\n",
		res.Entry.DisplayItem(), res.Entry.Stamp(), macros.FormatCell(res.Entry.Totals().Calories), res.Entry.ID)
	return nil
}

// parseAt accepts RFC3339 or HH:MM (today, local time). Empty means now.
func parseAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	clock, err := time.ParseInLocation("15:04", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or HH:MM", value)
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local), nil
}

func explainSessionError(err error) error {
	if errors.Is(err, capture.ErrNoSession) {
		return fmt.Errorf("%w; start one with `foodlog estimate`", err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
