package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/iotdemo-core/internal/collector"
	"github.com/nerrad567/iotdemo-core/internal/inference"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/logging"
	"github.com/nerrad567/iotdemo-core/internal/network"
	"github.com/nerrad567/iotdemo-core/internal/supervisor"
)

// gracefulShutdownTimeout bounds in-flight requests on Close.
const gracefulShutdownTimeout = 10 * time.Second

// ConnectivityProvider exposes the supervisor state.
type ConnectivityProvider interface {
	State() supervisor.State
}

// LinkProvider exposes the last link probe.
type LinkProvider interface {
	Status() network.ProbeStatus
}

// ResultsProvider exposes the collector's stored results.
type ResultsProvider interface {
	Summaries(ctx context.Context) ([]collector.Summary, error)
	NodeStatuses(ctx context.Context) ([]collector.NodeStatus, error)
	Recent(ctx context.Context, board string, limit int) ([]inference.Result, error)
}

// Deps holds the dependencies of the API server. Only Logger is required.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Version string

	Connectivity ConnectivityProvider
	Link         LinkProvider
	Results      ResultsProvider

	// Hub is used instead of a private one when set, so events can be
	// broadcast before the server starts.
	Hub *Hub
}

// Server is the status HTTP server.
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	version      string
	connectivity ConnectivityProvider
	link         LinkProvider
	results      ResultsProvider
	hub          *Hub
	startTime    time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a server. Nothing listens until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		version:      deps.Version,
		connectivity: deps.Connectivity,
		link:         deps.Link,
		results:      deps.Results,
		hub:          hub,
		startTime:    time.Now(),
	}, nil
}

// Hub returns the WebSocket hub events are broadcast through.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listener and serves in the background. Binding errors
// (port in use) are returned; later serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the hub and waits up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.server, s.cancel = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	cancel()

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
