package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/telemetry/health"
	"meridianrx/galen/pkg/telemetry/logging"
	"meridianrx/galen/pkg/telemetry/metrics"
	"meridianrx/galen/pkg/telemetry/tracing"
)

// Telemetry bundles the observability components: structured logging,
// Prometheus metrics, OpenTelemetry tracing, and health checks.
type Telemetry struct {
	cfg *config.TelemetryConfig

	logger    *logging.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
	checker   *health.Checker

	version   string
	commit    string
	buildTime string
}

// New wires up all telemetry components from configuration.
// Build information is exposed through the version endpoint.
func New(cfg *config.TelemetryConfig, version, commit, buildTime string) (*Telemetry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telemetry config is nil")
	}

	logger, err := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		AddSource:      cfg.Logging.AddSource,
		RedactPHI:      cfg.Logging.RedactPHI,
		BufferSize:     cfg.Logging.BufferSize,
		RedactPatterns: cfg.Logging.RedactPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		_ = logger.Shutdown()
		return nil, fmt.Errorf("creating tracer: %w", err)
	}

	return &Telemetry{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:    tracer,
		checker:   health.NewFromConfig(&cfg.Health),
		version:   version,
		commit:    commit,
		buildTime: buildTime,
	}, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger {
	return t.logger
}

// Metrics returns the Prometheus metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector {
	return t.collector
}

// Tracer returns the distributed tracer.
func (t *Telemetry) Tracer() *tracing.Tracer {
	return t.tracer
}

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker {
	return t.checker
}

// MountEndpoints registers the health check and metrics endpoints on a mux
// at their configured paths.
func (t *Telemetry) MountEndpoints(mux *http.ServeMux) {
	health.RegisterRoutes(mux, t.checker, &t.cfg.Health, t.version, t.commit, t.buildTime)

	if t.cfg.Metrics.Enabled {
		path := t.cfg.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, t.collector.Handler())
	}
}

// Shutdown flushes and stops all telemetry components.
// The tracer shuts down first so its final spans can still be logged.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error

	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.logger != nil {
		if err := t.logger.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
