package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"carewatch.dev/carewatch/internal/careapi"
	"carewatch.dev/carewatch/internal/dashboard"
	"carewatch.dev/carewatch/pkg/metrics"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the dashboard server",
	Long: `Run the dashboard web server that:
- Polls the care API into in-memory snapshots
- Serves alerts, devices, history and settings views
- Pushes live updates to browsers over WebSocket
- Proxies operator actions (ack, close, register) to the care API`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	// Dashboard-specific flags
	dashboardCmd.Flags().Int("http-port", 8080, "HTTP server port")
	dashboardCmd.Flags().String("api-url", "http://localhost:8000", "Care API base URL")
	dashboardCmd.Flags().String("api-token", "", "Care API token")
	dashboardCmd.Flags().Duration("poll-interval", 10*time.Second, "Snapshot poll interval")

	// Bind flags to viper
	_ = viper.BindPFlag("dashboard.http.port", dashboardCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("dashboard.api.url", dashboardCmd.Flags().Lookup("api-url"))
	_ = viper.BindPFlag("dashboard.api.token", dashboardCmd.Flags().Lookup("api-token"))
	_ = viper.BindPFlag("dashboard.poll.interval", dashboardCmd.Flags().Lookup("poll-interval"))
}

func runDashboard(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting dashboard service")

	client, err := careapi.NewClient(&careapi.Config{
		Logger:  logger,
		BaseURL: viper.GetString("dashboard.api.url"),
		Token:   viper.GetString("dashboard.api.token"),
	})
	if err != nil {
		logger.Error("failed to create care API client", "error", err)
		return err
	}

	// Create dashboard configuration from viper
	config := &dashboard.ServerConfig{
		Logger:       logger,
		HTTPPort:     viper.GetInt("dashboard.http.port"),
		API:          client,
		PollInterval: viper.GetDuration("dashboard.poll.interval"),
		Metrics:      metrics.NewDashboardMetrics("carewatch", metrics.Registry),
	}

	// Create and run server
	server, err := dashboard.NewServer(config)
	if err != nil {
		logger.Error("failed to create dashboard server", "error", err)
		return err
	}

	logger.Info("dashboard server configuration",
		"http_port", config.HTTPPort,
		"api_url", viper.GetString("dashboard.api.url"),
		"poll_interval", config.PollInterval.String(),
	)

	if err := server.Run(context.Background()); err != nil {
		logger.Error("dashboard server error", "error", err)
		return err
	}

	logger.Info("dashboard server stopped")
	return nil
}
