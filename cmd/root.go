// Package cmd defines and implements the CLI commands for the frontier executable.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "A distributed, resumable crawl-frontier engine.",
		Long: `frontier tracks which items are known and which remain unexplored,
hands out batches to a pool of concurrent workers, accepts items
discovered mid-crawl, and decides when the crawl has fully terminated.
The frontier can live in process memory or in Redis, allowing one crawl
to span multiple processes and hosts.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
