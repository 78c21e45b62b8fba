// Package cmd implements the CLI commands for stocksentry.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stocksentry",
	Short: "Watch store stock snapshots and fan out availability alerts",
	Long:  "A service that evaluates product-stock snapshots, deduplicates alerts per product, detects price changes, and fans results out to notification channels including an authenticated websocket broadcast.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
