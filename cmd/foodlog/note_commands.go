package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNoteCommand(ctx *commandContext) *cobra.Command {
	noteCmd := &cobra.Command{
		Use:   "note",
		Short: "Note file utilities",
	}

	noteCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the note with an empty ledger layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			created, err := svc.InitNote(cmd.Context())
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s mode)\n", cfg.Paths.NotePath, svc.Mode())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Note already exists at %s\n", cfg.Paths.NotePath)
			}
			return nil
		},
	})

	noteCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configured note location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Paths.NotePath)
			return nil
		},
	})

	return noteCmd
}
