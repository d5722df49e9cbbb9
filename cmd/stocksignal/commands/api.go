package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/stocksignal/internal/api"
	"github.com/quantlab/stocksignal/internal/api/handlers"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server with the background ingestion pool.

Endpoints:
  GET  /health                           - Health check
  POST /api/securities                   - Register a security
  GET  /api/securities/{symbol}          - Security profile
  GET  /api/securities/{symbol}/prices   - Price history
  GET  /api/signals/{symbol}             - Current signal
  GET  /api/signals/top                  - Top signals by confidence
  GET  /api/signals/{symbol}/history     - Signal history

Example:
  go run ./cmd/stocksignal api
  go run ./cmd/stocksignal api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "override listen port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	// Worker pool serves the background refreshes that POST /securities
	// enqueues.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.coordinator.Start(ctx)
	defer app.coordinator.Stop()

	securityHandler := handlers.NewSecurityHandler(app.securities, app.prices, app.provider, app.coordinator, app.logger)
	signalHandler := handlers.NewSignalHandler(app.scoring, app.logger)
	healthHandler := handlers.NewHealthHandler(app.db)

	router := api.NewRouter(securityHandler, signalHandler, healthHandler, app.logger)
	server := api.New(app.cfg, app.logger, router)

	go func() {
		if err := server.Start(); err != nil {
			app.logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
