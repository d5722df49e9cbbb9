package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service health and tracked securities",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := app.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("database:  DOWN (%v)\n", err)
	} else {
		fmt.Printf("database:  ok (%v, %d/%d conns)\n", health.ResponseTime, health.TotalConns, health.MaxConns)
	}

	if app.redis.Enabled() {
		fmt.Println("cache:     enabled")
	} else {
		fmt.Println("cache:     disabled (store-only mode)")
	}

	securities, err := app.securities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active securities: %w", err)
	}

	fmt.Printf("tracked:   %d active securities\n", len(securities))
	for _, sec := range securities {
		class := string(sec.Class)
		if class == "" {
			class = "UNCLASSIFIED"
		}
		fmt.Printf("  %-10s %-4s %s\n", sec.Symbol, sec.Market, class)
	}

	return nil
}
