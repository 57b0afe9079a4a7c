package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-linewriter/internal/ingest"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/pipeline"
)

const (
	// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
	gracefulShutdownTimeout = 10 * time.Second

	// healthCheckTimeout bounds each component check made by /health.
	healthCheckTimeout = 2 * time.Second
)

// Writer accepts points for delivery. *pipeline.Pipeline satisfies it.
type Writer interface {
	Add(ctx context.Context, points ...lineprotocol.Point) error
	Flush(ctx context.Context) error
	Stats() pipeline.Stats
	SinkNames() []string
}

// SpoolCounter reports the spool backlog per sink. *spool.SQLiteStore satisfies it.
type SpoolCounter interface {
	Count(ctx context.Context) (map[string]int, error)
}

// HealthChecker is implemented by every sink and by the database.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds what the server needs. Logger and Writer are required.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Writer  Writer
	Spool   SpoolCounter             // omitted from /stats when nil
	Decoder *ingest.Decoder          // a zero Decoder when nil
	Checks  map[string]HealthChecker // reported by /health
	Stream  *Stream                  // serves /stream when non-nil
	Version string
}

// Server is the HTTP write gateway.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	writer  Writer
	spool   SpoolCounter
	decoder *ingest.Decoder
	checks  map[string]HealthChecker
	stream  *Stream
	version string
	server  *http.Server
}

// New validates deps and returns a server that is not yet listening.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("api: writer is required")
	}

	decoder := deps.Decoder
	if decoder == nil {
		decoder = &ingest.Decoder{}
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		writer:  deps.Writer,
		spool:   deps.Spool,
		decoder: decoder,
		checks:  deps.Checks,
		stream:  deps.Stream,
		version: deps.Version,
	}, nil
}

// Start launches the listener in a background goroutine. Listen errors
// after startup are logged.
func (s *Server) Start(_ context.Context) error {
	timeouts := s.cfg.Timeouts
	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", "error", err)
		}
	}()
	return nil
}

// Close disconnects stream clients and shuts the listener down, waiting
// up to gracefulShutdownTimeout for in-flight requests.
func (s *Server) Close() error {
	if s.stream != nil {
		s.stream.Close() //nolint:errcheck // always nil
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// HealthCheck reports whether Start has been called.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
