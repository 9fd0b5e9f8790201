package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/offgridlab/offgrid-core/internal/infrastructure/config"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/database"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/influxdb"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/logging"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/metrics"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/mqtt"
	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/renogy"
	"github.com/offgridlab/offgrid-core/internal/telemetry"
	"github.com/offgridlab/offgrid-core/internal/timetrack"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
//
// Sensors, Devices and Tracker are required. The rest are optional and
// nil when the matching feature is disabled.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Metrics config.MetricsConfig
	Logger  *logging.Logger

	Sensors *onewire.Registry
	Devices *renogy.Registry
	Tracker *timetrack.Tracker

	DB         *database.DB
	MQTT       *mqtt.Client
	InfluxDB   *influxdb.Client
	Prometheus *metrics.Metrics

	// Poller, when set, is reported under /api/v1/system.
	Poller *telemetry.Poller

	// Hub, when set, is used instead of a server-owned hub so the poller
	// can broadcast on it before the server starts.
	Hub *Hub

	// Location is the zone /api/v1/time reports in. Defaults to time.Local.
	Location *time.Location

	Version string
}

// Server is the HTTP API server for offgrid-core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger

	sensors *onewire.Registry
	devices *renogy.Registry
	tracker *timetrack.Tracker

	db         *database.DB
	mqtt       *mqtt.Client
	influx     *influxdb.Client
	prometheus *metrics.Metrics
	poller     *telemetry.Poller

	location  *time.Location
	version   string
	startTime time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sensors == nil {
		return nil, fmt.Errorf("sensor registry is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("time tracker is required")
	}

	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger,
		sensors:    deps.Sensors,
		devices:    deps.Devices,
		tracker:    deps.Tracker,
		db:         deps.DB,
		mqtt:       deps.MQTT,
		influx:     deps.InfluxDB,
		prometheus: deps.Prometheus,
		poller:     deps.Poller,
		location:   loc,
		version:    deps.Version,
		startTime:  time.Now(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, creating it if Start has not run yet.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub (unless it was injected), builds the router
// and launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.Hub().Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
