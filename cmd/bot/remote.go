package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"breakout-trading-bot/internal/api"
)

// newRemoteCmd groups commands that talk to a running "serve" instance.
func newRemoteCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Query or drive a running bot over its status API",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "http://localhost:8080", "base URL of the status server")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")

	client := func() *api.Client {
		return api.NewClient(server, api.WithTimeout(timeout))
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current cycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Trigger one cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset the run to its initial state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reset")
			return nil
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "List recent journaled cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "number of cycles")

	cmd.AddCommand(status, run, reset, history)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
