package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/eod"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var continuous bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trading cycle, or keep cycling with --continuous",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			out := cmd.OutOrStdout()
			if !continuous {
				res, err := a.engine.Step(ctx)
				a.record(ctx, out, res)
				printSummary(out, a.engine.Snapshot())
				return err
			}

			go watchEOD(ctx)
			err = engine.RunContinuous(ctx, a.engine, a.pollInterval(), func(res *types.StepResult) {
				a.record(ctx, out, res)
			})
			printSummary(out, a.engine.Snapshot())
			writeEOD(ctx)
			if errors.Is(err, context.Canceled) {
				logger.Info(ctx, "Shutting down...")
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep cycling every poll_seconds until stopped")
	return cmd
}

func (a *app) pollInterval() time.Duration {
	return time.Duration(a.cfg.PollSeconds) * time.Second
}

// record prints the cycle as one JSON line and hands it to the publishers.
func (a *app) record(ctx context.Context, out io.Writer, res *types.StepResult) {
	if res == nil {
		return
	}
	if b, err := json.Marshal(res); err == nil {
		fmt.Fprintln(out, string(b))
	}
	if err := a.pub.Publish(ctx, res); err != nil {
		logger.Warn(ctx, "Failed to publish cycle", "cycle_id", res.CycleID, "error", err)
	}
}

func printSummary(out io.Writer, st *types.TradingCycleState) {
	if st == nil {
		return
	}
	fmt.Fprintln(out, "---- run summary ----")
	fmt.Fprintf(out, "symbol:        %s %s\n", st.Symbol, st.SymbolName)
	if p := st.Position.Open; p != nil {
		fmt.Fprintf(out, "position:      %d @ %.2f\n", p.Qty, p.EntryPrice)
	} else {
		fmt.Fprintln(out, "position:      flat")
	}
	fmt.Fprintf(out, "realized pnl:  %.2f\n", st.PnL.Realized)
	fmt.Fprintf(out, "daily pnl:     %.2f (%.2f%%)\n", st.PnL.Daily, st.PnL.DailyPct*100)
	fmt.Fprintf(out, "total asset:   %.2f\n", st.Account.TotalAsset)
	fmt.Fprintf(out, "win rate:      %.1f%% (%d/%d)\n", st.WinRate()*100, st.PnL.WinningTrades, st.PnL.TotalTrades)
	if st.TradingStopped {
		fmt.Fprintf(out, "stopped:       %s\n", st.StopReason)
	}
}

// watchEOD writes the day's summary once the cutoff has passed.
func watchEOD(ctx context.Context) {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				writeEOD(ctx)
			}
		}
	}
}

func writeEOD(ctx context.Context) {
	p, err := eod.SummarizeToday()
	if err != nil {
		logger.Warn(ctx, "EOD summary failed", "error", err)
		return
	}
	if p != "" {
		logger.Info(ctx, "EOD CSV written", "path", p)
	}
}
