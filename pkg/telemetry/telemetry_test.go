package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"meridianrx/galen/pkg/config"
)

func testTelemetryConfig() *config.TelemetryConfig {
	return &config.TelemetryConfig{
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: config.MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "meridianrx",
			Subsystem: "galen",
		},
		Tracing: config.TracingConfig{
			Enabled:     false,
			ServiceName: "galen-test",
		},
		Health: config.HealthConfig{
			Enabled:       true,
			LivenessPath:  "/healthz",
			ReadinessPath: "/readyz",
			VersionPath:   "/version",
			CheckTimeout:  time.Second,
		},
	}
}

// TestNew tests wiring up all telemetry components.
func TestNew(t *testing.T) {
	tel, err := New(testTelemetryConfig(), "0.1.0", "abc123", "2026-08-25")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Logger() == nil {
		t.Error("expected non-nil logger")
	}
	if tel.Metrics() == nil {
		t.Error("expected non-nil metrics collector")
	}
	if tel.Tracer() == nil {
		t.Error("expected non-nil tracer")
	}
	if tel.Health() == nil {
		t.Error("expected non-nil health checker")
	}
}

// TestNew_NilConfig tests that a nil config is rejected.
func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil, "0.1.0", "abc123", "2026-08-25"); err == nil {
		t.Error("expected error for nil config")
	}
}

// TestNew_InvalidLogging tests that logger errors propagate.
func TestNew_InvalidLogging(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.Logging.Format = "xml"

	if _, err := New(cfg, "0.1.0", "abc123", "2026-08-25"); err == nil {
		t.Error("expected error for invalid log format")
	}
}

// TestNew_InvalidTracing tests that tracer errors propagate.
func TestNew_InvalidTracing(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Sampler = "invalid"
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "localhost:4317"

	if _, err := New(cfg, "0.1.0", "abc123", "2026-08-25"); err == nil {
		t.Error("expected error for invalid sampler")
	}
}

// TestMountEndpoints tests that health and metrics endpoints are registered.
func TestMountEndpoints(t *testing.T) {
	tel, err := New(testTelemetryConfig(), "0.1.0", "abc123", "2026-08-25")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	mux := http.NewServeMux()
	tel.MountEndpoints(mux)

	paths := []string{"/healthz", "/readyz", "/version", "/metrics"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		})
	}
}

// TestMountEndpoints_MetricsDisabled tests that the metrics endpoint is
// omitted when metrics are disabled.
func TestMountEndpoints_MetricsDisabled(t *testing.T) {
	cfg := testTelemetryConfig()
	cfg.Metrics.Enabled = false

	tel, err := New(cfg, "0.1.0", "abc123", "2026-08-25")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	mux := http.NewServeMux()
	tel.MountEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	// Health endpoints are still available
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

// TestMountEndpoints_MetricsExposition tests the metrics exposition format.
func TestMountEndpoints_MetricsExposition(t *testing.T) {
	tel, err := New(testTelemetryConfig(), "0.1.0", "abc123", "2026-08-25")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	// Record a conversion so the exposition carries conversion metrics
	tel.Metrics().RecordConversion("success", "device", 2*time.Millisecond, 0.92, 3)

	mux := http.NewServeMux()
	tel.MountEndpoints(mux)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "meridianrx_galen_conversions_total") {
		t.Error("expected conversion counter in exposition output")
	}
}

// TestShutdown tests clean shutdown of all components.
func TestShutdown(t *testing.T) {
	tel, err := New(testTelemetryConfig(), "0.1.0", "abc123", "2026-08-25")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
