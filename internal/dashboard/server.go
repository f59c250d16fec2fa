// Package dashboard provides the operator dashboard for the elder-care
// monitoring deployment: it polls the care API into in-memory snapshots,
// derives filtered views, renders pages, and proxies operator mutations.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carewatch.dev/carewatch/internal/careapi"
	"carewatch.dev/carewatch/internal/feed"
	"carewatch.dev/carewatch/internal/model"
	"carewatch.dev/carewatch/pkg/metrics"
)

const fetchTimeout = 15 * time.Second

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// HTTP server configuration
	HTTPPort int

	// API is the care API the dashboard consumes.
	API careapi.API

	// PollInterval drives the alerts and messages feeds; devices poll at
	// 1.5x and rooms at 3x. Non-positive selects feed.DefaultInterval.
	PollInterval time.Duration

	// Metrics enables instrumentation when set.
	Metrics *metrics.DashboardMetrics
}

// Server represents the dashboard HTTP server.
type Server struct {
	logger     *slog.Logger
	config     *ServerConfig
	api        careapi.API
	metrics    *metrics.DashboardMetrics
	httpServer *http.Server
	hub        *hub

	alerts   *feed.Feed[model.Alert]
	devices  *feed.Feed[model.Device]
	messages *feed.Feed[model.Message]
	rooms    *feed.Feed[model.Room]
	pollers  []*feed.Poller
}

// NewServer creates a new dashboard Server instance with its feeds wired but
// not yet polling.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}
	if cfg.API == nil {
		return nil, errors.New("care API client cannot be nil")
	}

	s := &Server{
		logger:  cfg.Logger,
		config:  cfg,
		api:     cfg.API,
		metrics: cfg.Metrics,
	}
	s.hub = newHub(cfg.Logger, cfg.Metrics)

	var feedMetrics *metrics.FeedMetrics
	if cfg.Metrics != nil {
		feedMetrics = cfg.Metrics.Feed
	}

	var err error
	s.alerts, err = newFeed(s, feedMetrics, "alerts", func(ctx context.Context) ([]model.Alert, error) {
		return s.api.Alerts(ctx, careapi.AlertQuery{})
	}, model.Alert.Key)
	if err != nil {
		return nil, err
	}
	s.devices, err = newFeed(s, feedMetrics, "devices", func(ctx context.Context) ([]model.Device, error) {
		return s.api.Devices(ctx)
	}, model.Device.Key)
	if err != nil {
		return nil, err
	}
	s.messages, err = newFeed(s, feedMetrics, "messages", func(ctx context.Context) ([]model.Message, error) {
		return s.api.Messages(ctx, careapi.DefaultAlertLimit)
	}, model.Message.Key)
	if err != nil {
		return nil, err
	}
	s.rooms, err = newFeed(s, feedMetrics, "rooms", func(ctx context.Context) ([]model.Room, error) {
		return s.api.Rooms(ctx)
	}, model.Room.Key)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// newFeed wires one resource feed to the server's notifier and live hub.
func newFeed[T any](s *Server, fm *metrics.FeedMetrics, name string, fetch feed.FetchFunc[T], key func(T) string) (*feed.Feed[T], error) {
	f, err := feed.New(feed.Config[T]{
		Logger:  s.logger,
		Name:    name,
		Fetch: func(ctx context.Context) ([]T, error) {
			ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()
			return fetch(ctx)
		},
		Key:     key,
		Notify:  s.notify,
		Metrics: fm,
		OnApply: s.hub.snapshotApplied,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s feed: %w", name, err)
	}
	return f, nil
}

// notify forwards an operator-visible event to connected browsers. The feeds
// call this on transport failures; mutation handlers use it for outcomes.
func (s *Server) notify(kind, text string) {
	s.logger.Info("notice", "kind", kind, "text", text)
	s.hub.notice(kind, text)
}

// Run starts the dashboard server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting dashboard server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go s.hub.run(ctx)

	// First load is visible; the pollers' immediate tick is silent and gets
	// dropped by the guard if the visible load is still in flight.
	s.initialLoad(ctx)
	s.startPolling(ctx)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("dashboard server started successfully")

	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			s.stopPolling()
			return err
		}
	}

	return s.Shutdown()
}

// initialLoad performs the visible first fetch of every feed. Failures are
// reported but not fatal; polling retries implicitly.
func (s *Server) initialLoad(ctx context.Context) {
	if err := s.alerts.Load(ctx, false); err != nil {
		s.logger.Warn("initial alerts load failed", "error", err)
	}
	if err := s.devices.Load(ctx, false); err != nil {
		s.logger.Warn("initial devices load failed", "error", err)
	}
	if err := s.messages.Load(ctx, false); err != nil {
		s.logger.Warn("initial messages load failed", "error", err)
	}
	if err := s.rooms.Load(ctx, false); err != nil {
		s.logger.Warn("initial rooms load failed", "error", err)
	}
}

// startPolling starts one poller per feed.
func (s *Server) startPolling(ctx context.Context) {
	base := s.config.PollInterval
	if base <= 0 {
		base = feed.DefaultInterval
	}

	start := func(interval time.Duration, effect func(context.Context)) {
		p, err := feed.NewPoller(s.logger, interval)
		if err != nil {
			// Unreachable: the logger was validated in NewServer.
			s.logger.Error("failed to create poller", "error", err)
			return
		}
		p.Start(ctx, effect)
		s.pollers = append(s.pollers, p)
	}

	start(base, s.alerts.Effect())
	start(base, s.messages.Effect())
	start(base*3/2, s.devices.Effect())
	start(base*3, s.rooms.Effect())
}

// stopPolling stops every poller; no snapshot updates are applied afterwards.
func (s *Server) stopPolling() {
	for _, p := range s.pollers {
		p.Stop()
	}
	s.pollers = nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down dashboard server")

	s.stopPolling()

	var shutdownErr error
	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	if shutdownErr != nil {
		s.logger.Error("dashboard server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("dashboard server shutdown completed successfully")
	return nil
}

// SetLive pauses or resumes all feeds without restarting their timers.
func (s *Server) SetLive(live bool) {
	s.alerts.SetLive(live)
	s.devices.SetLive(live)
	s.messages.SetLive(live)
	s.rooms.SetLive(live)
}

// Live reports whether polling is active.
func (s *Server) Live() bool {
	return s.alerts.Live()
}
