package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var signalCmd = &cobra.Command{
	Use:   "signal [symbol]",
	Short: "Show the current signal for a security",
	Long: `Resolves the current signal for a symbol, evaluating a fresh one
when the stored signal has expired.

Example:
  go run ./cmd/stocksignal signal AAPL
  go run ./cmd/stocksignal signal AAPL --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSignal,
}

var signalJSON bool

func init() {
	rootCmd.AddCommand(signalCmd)
	signalCmd.Flags().BoolVar(&signalJSON, "json", false, "print the full signal as JSON")
}

func runSignal(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	symbol := args[0]

	resolved, err := app.scoring.GetSignal(context.Background(), symbol)
	if err != nil {
		return fmt.Errorf("get signal for %s: %w", symbol, err)
	}

	sig := resolved.Value

	if signalJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sig)
	}

	fmt.Printf("%s  %s\n", sig.Symbol, sig.Type)
	fmt.Printf("  confidence:  %.1f%%\n", sig.Confidence)
	fmt.Printf("  risk:        %s\n", sig.Risk)
	fmt.Printf("  holding:     %s\n", sig.Holding)
	fmt.Printf("  composite:   %.1f\n", sig.Explanation.CompositeScore)
	fmt.Printf("  created:     %s (source: %s", sig.CreatedAt.Format("2006-01-02 15:04:05 MST"), resolved.Source)
	if resolved.Stale {
		fmt.Print(", STALE")
	}
	fmt.Println(")")
	fmt.Printf("\n%s\n", sig.Explanation.Summary)

	if len(sig.Explanation.Triggers) > 0 {
		fmt.Println("\nTriggers:")
		for _, t := range sig.Explanation.Triggers {
			fmt.Printf("  - %s\n", t)
		}
	}
	if len(sig.Explanation.Risks) > 0 {
		fmt.Println("\nRisks:")
		for _, r := range sig.Explanation.Risks {
			fmt.Printf("  - %s\n", r)
		}
	}

	return nil
}
