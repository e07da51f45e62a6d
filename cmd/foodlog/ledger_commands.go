package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"foodlog/internal/ledger"
	"foodlog/internal/macros"
)

func newLedgerCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSyncCommand(ctx),
		newRebuildCommand(ctx),
		newVerifyCommand(ctx),
		newShowCommand(ctx),
	}
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"reconcile"},
		Short:   "Drop stale table rows, remove orphan blocks and refresh daily totals",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			res, err := svc.Reconcile(cmd.Context())
			if err != nil {
				return explainNoteError(err)
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{
					"changed":       res.Changed,
					"stale_rows":    res.Sync.StaleRows,
					"orphan_blocks": res.Sync.OrphanBlocks,
					"unresolved":    res.Sync.Unresolved,
					"days":          res.Days,
				})
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintln(out, "Note already in sync")
			} else {
				fmt.Fprintf(out, "Note updated: %d stale row(s), %d orphan block(s), %d day(s) totaled\n",
					len(res.Sync.StaleRows), len(res.Sync.OrphanBlocks), len(res.Days))
			}
			if len(res.Sync.Unresolved) > 0 {
				fmt.Fprintf(out, "Markers left in place (no block boundary): %s\n", strings.Join(res.Sync.Unresolved, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRebuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate the Meals Table from the meal blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			res, err := svc.RebuildTable(cmd.Context())
			if err != nil {
				return explainNoteError(err)
			}
			if res.Changed {
				fmt.Fprintln(cmd.OutOrStdout(), "Meals Table rebuilt")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Meals Table already matches the meal blocks")
			}
			return nil
		},
	}
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the note renders and its table agrees with the blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.ledger()
			if err != nil {
				return err
			}
			text, err := l.Read(cmd.Context())
			if err != nil {
				return explainNoteError(err)
			}
			rep, err := ledger.Verify(text)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, rep); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Meals Table: %s (%d marked row(s), %d rendered)\n",
					yesNo(rep.HasMealsTable), rep.MarkerRows, rep.RenderedRows)
				for _, p := range rep.Problems {
					fmt.Fprintf(out, "  - %s\n", p)
				}
				if rep.OK() {
					fmt.Fprintln(out, "Note OK")
				}
			}
			if !rep.OK() {
				return errors.New("note has problems; run `foodlog sync` or `foodlog rebuild`")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var date string
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the note, or one day of it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := ctx.ledger()
			if err != nil {
				return err
			}
			text, err := l.Read(cmd.Context())
			if err != nil {
				return explainNoteError(err)
			}
			if date != "" {
				if date == "today" {
					cfg, _ := ctx.ensureConfig()
					date = time.Now().In(cfg.Location()).Format(ledger.DateLayout)
				}
				if _, err := time.Parse(ledger.DateLayout, date); err != nil {
					return fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
				}
				text = dayExcerpt(text, date)
				if text == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Nothing logged on %s\n", date)
					return nil
				}
			}
			out := cmd.OutOrStdout()
			if raw || !shouldColorize(out) {
				fmt.Fprint(out, text)
				return nil
			}
			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
			if err != nil {
				return fmt.Errorf("init renderer: %w", err)
			}
			rendered, err := r.Render(text)
			if err != nil {
				return fmt.Errorf("render note: %w", err)
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Day to show (YYYY-MM-DD or 'today')")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print Markdown without rendering")
	cmd.Flags().IntVar(&width, "width", 100, "Wrap width for rendered output")
	return cmd
}

// dayExcerpt returns the day section for date, or the meal blocks stamped
// on that date followed by a totals line when the note has no such section.
func dayExcerpt(text, date string) string {
	doc := ledger.Parse(text)
	if day := doc.Day(date); day != nil {
		return strings.Join(doc.Lines[day.Range.Start:day.Range.End], "\n") + "\n"
	}
	var (
		parts  []string
		totals []macros.Set
	)
	for _, b := range doc.Blocks {
		if !strings.HasPrefix(b.Stamp, date) {
			continue
		}
		parts = append(parts, strings.Join(doc.Lines[b.Range.Start:b.Range.End], "\n"))
		totals = append(totals, doc.BlockEntry(b).Totals())
	}
	if len(parts) == 0 {
		return ""
	}
	sum := macros.Sum(totals...)
	parts = append(parts, fmt.Sprintf("**%s:** %s ккал / Б %s / Ж %s / У %s", date,
		macros.FormatRounded(sum.Calories), macros.FormatRounded(sum.Proteins),
		macros.FormatRounded(sum.Fats), macros.FormatRounded(sum.Carbohydrates)))
	return strings.Join(parts, "\n\n") + "\n"
}
