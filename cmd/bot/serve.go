package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/telemetry"
	"breakout-trading-bot/internal/types"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr   string
		manual bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve status, metrics and the live cycle feed while trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if addr == "" {
				addr = a.cfg.Telemetry.Addr
			}

			var history telemetry.History
			if a.journal != nil {
				history = a.journal
			}
			srv := telemetry.NewServer(a.engine, a.pub, a.hub, history)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.hub.Run(gctx)
				return nil
			})
			g.Go(func() error {
				return srv.ListenAndServe(gctx, addr)
			})
			if !manual {
				g.Go(func() error {
					go watchEOD(gctx)
					err := engine.RunContinuous(gctx, a.engine, a.pollInterval(), func(res *types.StepResult) {
						a.record(gctx, cmd.OutOrStdout(), res)
					})
					if err == nil {
						// Halted: keep serving status until the process is stopped.
						<-gctx.Done()
					}
					return err
				})
			}

			err = g.Wait()
			writeEOD(context.Background())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides telemetry.addr")
	cmd.Flags().BoolVar(&manual, "manual", false, "only run cycles on POST /api/run")
	return cmd
}
