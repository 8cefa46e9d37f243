package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	symbol     string
	mode       string
	logLevel   string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Volatility breakout trading bot for a single instrument",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindRootFlags(cmd, opts)
	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newEodCmd(opts),
		newRemoteCmd(),
	)
	return cmd
}

func bindRootFlags(cmd *cobra.Command, opts *rootOptions) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "config.yaml", "path to the YAML configuration")
	pf.StringVar(&opts.symbol, "symbol", "", "instrument code, overrides the configured symbol")
	pf.StringVar(&opts.mode, "mode", "", "paper or live, overrides the configured mode")
	pf.StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "simulate every order against the paper book")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
