// Package commands implements the stocksignal CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "stocksignal",
	Short: "Stock signal generation service",
	Long: `stocksignal generates graded trading signals (BUY / HOLD / SELL)
from market price history, technical indicators, and company
fundamentals.

Usage:
  go run ./cmd/stocksignal [command]

Examples:
  go run ./cmd/stocksignal api
  go run ./cmd/stocksignal scheduler start
  go run ./cmd/stocksignal refresh AAPL
  go run ./cmd/stocksignal signal AAPL
  go run ./cmd/stocksignal status`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
