package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"breakout-trading-bot/internal/eod"
	"breakout-trading-bot/internal/tradelog"
)

func newEodCmd(opts *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "eod",
		Short: "Write the end-of-day CSV summary from the trade log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeSystem(opts); err != nil {
				return err
			}
			initializeEOD()
			if _, err := loadConfig(cmd.Context(), opts); err != nil {
				return err
			}

			day := time.Now().In(tradelog.Location())
			if date != "" {
				t, err := time.ParseInLocation("2006-01-02", date, tradelog.Location())
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
				day = t
			}
			p, err := eod.SummarizeDay(day)
			if err != nil {
				return err
			}
			if p == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no trades on", day.Format("2006-01-02"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "trading day as YYYY-MM-DD, defaults to today")
	return cmd
}
