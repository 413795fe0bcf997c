package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"meridianrx/galen/pkg/audit/recorder"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/formulary"
	"meridianrx/galen/pkg/guardrails"
	"meridianrx/galen/pkg/telemetry"
	"meridianrx/galen/pkg/telemetry/metrics"
	"meridianrx/galen/pkg/telemetry/tracing"
)

// Deps carries the collaborators the server exposes over HTTP. Engine
// is required; every other dependency is optional and its feature is
// simply absent when nil.
type Deps struct {
	// Engine performs the conversions. Required.
	Engine *engine.Converter

	// Formulary resolves medication IDs into conversion contexts.
	// Without it, requests that name a medication are rejected.
	Formulary *formulary.ContextBuilder

	// Guardrails evaluates successful conversions. Nil skips
	// evaluation; responses then carry no verdict.
	Guardrails *guardrails.Evaluator

	// Audit records conversion requests and their outcomes. Nil
	// disables auditing.
	Audit *recorder.Recorder

	// Telemetry supplies the logger, metrics collector, tracer and
	// health endpoints. Nil falls back to slog.Default(), no metrics
	// and a disabled tracer.
	Telemetry *telemetry.Telemetry
}

// Server is the HTTP API over the conversion engine.
type Server struct {
	config *config.ServerConfig
	deps   Deps

	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool

	// convertMu serializes conversion and guardrail evaluation. The
	// Converter performs one conversion at a time; see the package
	// documentation.
	convertMu sync.Mutex
}

// New assembles a Server. A nil config uses the documented defaults.
func New(cfg *config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("server: engine is required")
	}
	if cfg == nil {
		cfg = &config.DefaultConfig().Server
	}

	s := &Server{
		config:       cfg,
		deps:         deps,
		logger:       slog.Default(),
		shutdownChan: make(chan struct{}),
	}

	if deps.Telemetry != nil {
		s.logger = deps.Telemetry.Logger().Slog()
		s.collector = deps.Telemetry.Metrics()
		s.tracer = deps.Telemetry.Tracer()
	} else {
		tracer, err := tracing.New(&config.TracingConfig{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("server: creating disabled tracer: %w", err)
		}
		s.tracer = tracer
	}
	s.logger = s.logger.With("component", "server")

	return s, nil
}

// Start starts the HTTP server and blocks until shutdown, which is
// triggered by context cancellation, SIGINT/SIGTERM, a Shutdown call,
// or a listener error.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting conversion API server",
			"address", s.config.ListenAddress,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the
// configured shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown",
			"timeout", s.config.ShutdownTimeout.String(),
		)

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("conversion API server stopped")
	})

	return shutdownErr
}

// setupRoutes configures the HTTP routes and middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/convert", s.handleConvert)
	mux.HandleFunc("POST /v1/validate", s.handleValidate)
	mux.HandleFunc("GET /v1/units/{unit}/compatible", s.handleCompatible)

	if s.deps.Telemetry != nil {
		s.deps.Telemetry.MountEndpoints(mux)
	}

	// Request flow: request ID first so recovery and logging both see
	// it, then recovery so panics below it are caught, logging
	// innermost.
	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.requestIDMiddleware(handler)

	return handler
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler, for tests and for
// embedding the API under an existing server.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
