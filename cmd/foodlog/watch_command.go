package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"foodlog/internal/capture"
	"foodlog/internal/config"
	"foodlog/internal/logging"
	"foodlog/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reconcile the note whenever it is edited outside foodlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc, err := ctx.service(signalCtx, false)
			if err != nil {
				return err
			}
			pruneLogs(ctx, cfg)

			if _, err := svc.Reconcile(signalCtx); err != nil {
				return explainNoteError(err)
			}
			if once {
				fmt.Fprintln(cmd.OutOrStdout(), "Note reconciled")
				return nil
			}
			return runWatcher(signalCtx, ctx, cfg, svc)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single reconcile pass and exit")
	return cmd
}

func runWatcher(ctx context.Context, cc *commandContext, cfg *config.Config, svc *capture.Service) error {
	w := watch.New(cfg.Paths.NotePath, cc.guard, svc,
		watch.WithDebounce(cfg.Debounce()),
		watch.WithLogger(cc.log()),
	)
	return w.Run(ctx)
}

func pruneLogs(ctx *commandContext, cfg *config.Config) {
	removed := logging.PruneLogs(ctx.log(), cfg.Paths.LogDir, "*.log", logging.LogFileName, cfg.Logging.RetentionDays)
	if len(removed) > 0 {
		ctx.log().Info("pruned old logs", logging.Int("count", len(removed)))
	}
}
