package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"carewatch.dev/carewatch/internal/mockapi"
)

var mockapiCmd = &cobra.Command{
	Use:   "mockapi",
	Short: "Run a mock care API server",
	Long: `Run an in-memory care API seeded with synthetic data:
- Serves the full care API surface the dashboard consumes
- Supports ack, close, bulk close, purge and device registration
- Reproducible data via --seed`,
	RunE: runMockAPI,
}

func init() {
	rootCmd.AddCommand(mockapiCmd)

	// Mock API-specific flags
	mockapiCmd.Flags().Int("http-port", 8000, "HTTP server port")
	mockapiCmd.Flags().Int("devices", 6, "Number of seeded devices")
	mockapiCmd.Flags().Int("alerts", 40, "Number of seeded alerts")
	mockapiCmd.Flags().Int("messages", 200, "Number of seeded messages")
	mockapiCmd.Flags().Uint64("seed", 0, "Random seed (0 means non-reproducible)")

	// Bind flags to viper
	_ = viper.BindPFlag("mockapi.http.port", mockapiCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("mockapi.devices", mockapiCmd.Flags().Lookup("devices"))
	_ = viper.BindPFlag("mockapi.alerts", mockapiCmd.Flags().Lookup("alerts"))
	_ = viper.BindPFlag("mockapi.messages", mockapiCmd.Flags().Lookup("messages"))
	_ = viper.BindPFlag("mockapi.seed", mockapiCmd.Flags().Lookup("seed"))
}

func runMockAPI(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting mock care API")

	server, err := mockapi.NewServer(&mockapi.Config{
		Logger:   logger,
		Devices:  viper.GetInt("mockapi.devices"),
		Alerts:   viper.GetInt("mockapi.alerts"),
		Messages: viper.GetInt("mockapi.messages"),
		Seed:     viper.GetUint64("mockapi.seed"),
	})
	if err != nil {
		logger.Error("failed to create mock server", "error", err)
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("mockapi.http.port")),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("mock care API listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down mock care API")
	case err := <-httpErr:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
		return err
	}
	logger.Info("mock care API stopped")
	return nil
}
