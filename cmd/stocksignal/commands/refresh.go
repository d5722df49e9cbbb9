package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [symbol]",
	Short: "Refresh market data for one security or all active ones",
	Long: `Fetches prices and fundamentals from the provider, recomputes
indicators, and persists everything. Without a symbol, sweeps every
active security.

Example:
  go run ./cmd/stocksignal refresh AAPL
  go run ./cmd/stocksignal refresh`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := context.Background()

	if len(args) == 1 {
		return refreshOne(ctx, app, args[0])
	}
	return refreshAll(ctx, app)
}

func refreshOne(ctx context.Context, app *app, symbol string) error {
	sec, err := app.securities.GetBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("look up %s: %w", symbol, err)
	}

	fmt.Printf("Refreshing %s (%s)...\n", sec.Symbol, sec.Market)

	if err := app.coordinator.RefreshPrices(ctx, sec); err != nil {
		return fmt.Errorf("prices: %w", err)
	}
	fmt.Println("  prices + indicators done")

	if err := app.coordinator.RefreshFundamentals(ctx, sec); err != nil {
		fmt.Printf("  fundamentals failed: %v\n", err)
	} else {
		fmt.Println("  fundamentals done")
	}

	return nil
}

func refreshAll(ctx context.Context, app *app) error {
	securities, err := app.securities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active securities: %w", err)
	}
	if len(securities) == 0 {
		fmt.Println("No active securities")
		return nil
	}

	fmt.Printf("Refreshing %d securities...\n", len(securities))

	failed := 0
	for _, res := range app.coordinator.Sweep(ctx, "prices", securities, app.coordinator.RefreshPrices) {
		if res.Err != nil {
			failed++
			fmt.Printf("  %s: %v\n", res.Symbol, res.Err)
		}
	}
	for _, res := range app.coordinator.Sweep(ctx, "fundamentals", securities, app.coordinator.RefreshFundamentals) {
		if res.Err != nil {
			failed++
			fmt.Printf("  %s: %v\n", res.Symbol, res.Err)
		}
	}

	fmt.Printf("Done (%d failures)\n", failed)
	return nil
}
