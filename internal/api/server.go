package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gridctl/internal/controller"
	"github.com/nerrad567/gridctl/internal/device"
	"github.com/nerrad567/gridctl/internal/diagnostics"
	"github.com/nerrad567/gridctl/internal/history"
	"github.com/nerrad567/gridctl/internal/host"
	"github.com/nerrad567/gridctl/internal/infrastructure/config"
	"github.com/nerrad567/gridctl/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Invoker runs invocations. *host.Host satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, argument string) (controller.Result, error)
	Last() (host.Invocation, bool)
}

// DeviceRegistry is the part of *device.Registry the API reads and writes.
type DeviceRegistry interface {
	ListDevices(ctx context.Context) []device.Device
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	GroupByName(ctx context.Context, name string) (device.Group, error)
	ApplyReading(ctx context.Context, id string, reading device.Reading) error
	GetStats() device.Stats
	OnChange(fn device.ChangeFunc)
}

// EchoFeed is the diagnostic channel. *diagnostics.Channel satisfies it.
type EchoFeed interface {
	Lines() []diagnostics.Line
	Since(seq uint64) []diagnostics.Line
	Subscribe(buffer int) (<-chan diagnostics.Line, func())
}

// HistoryLister pages through recorded invocations.
// *history.SQLiteRepository satisfies it.
type HistoryLister interface {
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// HealthChecker is implemented by optional collaborators (MQTT, InfluxDB,
// the database) that report on /api/v1/system.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry DeviceRegistry
	Host     Invoker
	Echo     EchoFeed

	// History enables /api/v1/invocations when set.
	History HistoryLister

	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	// Checks are reported by name on /api/v1/system.
	Checks map[string]HealthChecker

	Version string
}

// Server is the operator HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	registry    DeviceRegistry
	host        Invoker
	echo        EchoFeed
	history     HistoryLister
	metrics     http.Handler
	metricsPath string
	checks      map[string]HealthChecker
	version     string
	startTime   time.Time

	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc
	stopEcho func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Host == nil {
		return nil, fmt.Errorf("host is required")
	}
	if deps.Echo == nil {
		return nil, fmt.Errorf("diagnostic channel is required")
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		registry:    deps.Registry,
		host:        deps.Host,
		echo:        deps.Echo,
		history:     deps.History,
		metrics:     deps.Metrics,
		metricsPath: deps.MetricsPath,
		checks:      deps.Checks,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	s.hub = NewHub(deps.Config.WebSocket, deps.Logger)
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, relays diagnostic lines and registry changes
// to it, and launches the HTTP listener in a background goroutine. The
// server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	s.relay(srvCtx)

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

// relay forwards diagnostic lines and device changes to WebSocket clients.
func (s *Server) relay(ctx context.Context) {
	lines, stop := s.echo.Subscribe(wsSendBufferSize)
	s.stopEcho = stop
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				s.hub.Broadcast(ChannelDiagnostics, line)
			}
		}
	}()

	s.registry.OnChange(func(d device.Device) {
		if ctx.Err() == nil {
			s.hub.Broadcast(ChannelDevices, d)
		}
	})
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
	if s.stopEcho != nil {
		s.stopEcho()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
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
