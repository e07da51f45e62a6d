package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"foodlog/internal/toolserver"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve meal tools over HTTP and watch the note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Server.Bind
			}
			svc, err := ctx.service(signalCtx, true)
			if err != nil {
				return err
			}
			store, err := ctx.entryStore()
			if err != nil {
				return err
			}
			pruneLogs(ctx, cfg)

			srv := toolserver.New(bind, cfg.Server.Token, svc, store, ctx.log())
			group, groupCtx := errgroup.WithContext(signalCtx)
			group.Go(func() error { return srv.Serve(groupCtx) })
			if !noWatch {
				group.Go(func() error { return runWatcher(groupCtx, ctx, cfg, svc) })
			}
			return group.Wait()
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the note for outside edits")
	return cmd
}
