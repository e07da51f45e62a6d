package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"foodlog/internal/entrystore"
	"foodlog/internal/ledger"
)

func newEntriesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var date string
	var asJSON bool

	entriesCmd := &cobra.Command{
		Use:   "entries",
		Short: "List recorded meal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.entryStore()
			if err != nil {
				return err
			}
			var entries []entrystore.Entry
			if date != "" {
				if _, err := time.Parse(ledger.DateLayout, date); err != nil {
					return fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
				}
				entries, err = store.ListByDate(cmd.Context(), date)
			} else {
				entries, err = store.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderEntries(entries))
			return nil
		},
	}
	entriesCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of newest entries to show (0 for all)")
	entriesCmd.Flags().StringVarP(&date, "date", "d", "", "Show the entries eaten on a day (YYYY-MM-DD)")
	entriesCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	entriesCmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove entries that carry no macro value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.entryStore()
			if err != nil {
				return err
			}
			n, err := store.CleanupEmpty(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d empty entr%s\n", n, pluralY(n))
			return nil
		},
	})

	return entriesCmd
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
