package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meridianrx/galen/pkg/config"
)

// TestNew tests the creation of a new health checker.
func TestNew(t *testing.T) {
	tests := []struct {
		name            string
		timeout         time.Duration
		expectedTimeout time.Duration
	}{
		{
			name:            "default timeout",
			timeout:         0,
			expectedTimeout: 5 * time.Second,
		},
		{
			name:            "custom timeout",
			timeout:         10 * time.Second,
			expectedTimeout: 10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)

			if checker == nil {
				t.Fatal("expected non-nil checker")
			}

			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}

			if checker.checks == nil {
				t.Error("expected non-nil checks map")
			}

			if len(checker.checks) != 0 {
				t.Errorf("expected 0 checks, got %d", len(checker.checks))
			}
		})
	}
}

// TestNewFromConfig tests creating a checker from health configuration.
func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name            string
		cfg             *config.HealthConfig
		expectedTimeout time.Duration
	}{
		{
			name:            "nil config uses defaults",
			cfg:             nil,
			expectedTimeout: 5 * time.Second,
		},
		{
			name: "config timeout",
			cfg: &config.HealthConfig{
				Enabled:      true,
				CheckTimeout: 2 * time.Second,
			},
			expectedTimeout: 2 * time.Second,
		},
		{
			name: "zero timeout uses default",
			cfg: &config.HealthConfig{
				Enabled: true,
			},
			expectedTimeout: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewFromConfig(tt.cfg)

			if checker == nil {
				t.Fatal("expected non-nil checker")
			}

			if checker.checkTimeout != tt.expectedTimeout {
				t.Errorf("expected timeout %v, got %v", tt.expectedTimeout, checker.checkTimeout)
			}
		})
	}
}

// TestRegisterCheck tests registering health checks.
func TestRegisterCheck(t *testing.T) {
	checker := New(5 * time.Second)

	// Register a check
	called := false
	checker.RegisterCheck("registry", func(ctx context.Context) error {
		called = true
		return nil
	})

	if checker.CheckCount() != 1 {
		t.Errorf("expected 1 check, got %d", checker.CheckCount())
	}

	// Call the check
	check := checker.GetCheck("registry")
	if check == nil {
		t.Fatal("expected non-nil check")
	}

	_ = check(context.Background())
	if !called {
		t.Error("expected check to be called")
	}

	// Replace check
	called2 := false
	checker.RegisterCheck("registry", func(ctx context.Context) error {
		called2 = true
		return nil
	})

	if checker.CheckCount() != 1 {
		t.Errorf("expected 1 check after replacement, got %d", checker.CheckCount())
	}

	check2 := checker.GetCheck("registry")
	_ = check2(context.Background())
	if !called2 {
		t.Error("expected replacement check to be called")
	}
}

// TestUnregisterCheck tests unregistering health checks.
func TestUnregisterCheck(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("formulary", func(ctx context.Context) error { return nil })

	if checker.CheckCount() != 2 {
		t.Errorf("expected 2 checks, got %d", checker.CheckCount())
	}

	checker.UnregisterCheck("registry")

	if checker.CheckCount() != 1 {
		t.Errorf("expected 1 check after unregister, got %d", checker.CheckCount())
	}

	if checker.GetCheck("registry") != nil {
		t.Error("expected nil for unregistered check")
	}

	if checker.GetCheck("formulary") == nil {
		t.Error("expected non-nil for remaining check")
	}
}

// TestListChecks tests listing registered checks.
func TestListChecks(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("formulary", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("audit", func(ctx context.Context) error { return nil })

	checks := checker.ListChecks()

	if len(checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(checks))
	}

	// Check names are present
	names := make(map[string]bool)
	for _, name := range checks {
		names[name] = true
	}

	if !names["registry"] || !names["formulary"] || !names["audit"] {
		t.Error("expected all check names to be present")
	}
}

// TestCheckLiveness tests the liveness check.
func TestCheckLiveness(t *testing.T) {
	checker := New(5 * time.Second)

	status := checker.CheckLiveness(context.Background())

	if status.Status != StatusOK {
		t.Errorf("expected status %q, got %q", StatusOK, status.Status)
	}

	if status.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}

	if len(status.Checks) > 0 {
		t.Error("expected no checks in liveness response")
	}
}

// TestCheckReadiness_NoChecks tests readiness with no checks registered.
func TestCheckReadiness_NoChecks(t *testing.T) {
	checker := New(5 * time.Second)

	status := checker.CheckReadiness(context.Background())

	if status.Status != StatusReady {
		t.Errorf("expected status %q, got %q", StatusReady, status.Status)
	}

	if status.Checks == nil {
		t.Error("expected non-nil checks map")
	}

	if len(status.Checks) != 0 {
		t.Errorf("expected 0 checks, got %d", len(status.Checks))
	}
}

// TestCheckReadiness_AllHealthy tests readiness with all healthy checks.
func TestCheckReadiness_AllHealthy(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("formulary", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())

	if status.Status != StatusReady {
		t.Errorf("expected status %q, got %q", StatusReady, status.Status)
	}

	if len(status.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(status.Checks))
	}

	for name, result := range status.Checks {
		if result.Status != StatusOK {
			t.Errorf("expected check %q to be ok, got %q", name, result.Status)
		}
	}
}

// TestCheckReadiness_SomeUnhealthy tests readiness with unhealthy checks.
func TestCheckReadiness_SomeUnhealthy(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("formulary", func(ctx context.Context) error {
		return errors.New("formulary store unavailable")
	})

	status := checker.CheckReadiness(context.Background())

	if status.Status != StatusDegraded {
		t.Errorf("expected status %q, got %q", StatusDegraded, status.Status)
	}

	if len(status.Checks) != 2 {
		t.Errorf("expected 2 checks, got %d", len(status.Checks))
	}

	healthyResult := status.Checks["registry"]
	if healthyResult.Status != StatusOK {
		t.Errorf("expected registry check to be ok, got %q", healthyResult.Status)
	}

	unhealthyResult := status.Checks["formulary"]
	if unhealthyResult.Status != StatusUnhealthy {
		t.Errorf("expected formulary check to be unhealthy, got %q", unhealthyResult.Status)
	}
	if unhealthyResult.Message != "formulary store unavailable" {
		t.Errorf("expected message 'formulary store unavailable', got %q", unhealthyResult.Message)
	}
}

// TestCheckReadiness_Disabled tests that disabled components do not degrade
// the overall status.
func TestCheckReadiness_Disabled(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("audit", Disabled())

	status := checker.CheckReadiness(context.Background())

	if status.Status != StatusReady {
		t.Errorf("expected status %q, got %q", StatusReady, status.Status)
	}

	auditResult := status.Checks["audit"]
	if auditResult.Status != StatusDisabled {
		t.Errorf("expected audit check to be disabled, got %q", auditResult.Status)
	}
	if auditResult.Message != "" {
		t.Errorf("expected no message for disabled check, got %q", auditResult.Message)
	}
}

// TestCheckReadiness_Timeout tests readiness with a check that times out.
func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(100 * time.Millisecond)

	checker.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())

	if status.Status != StatusDegraded {
		t.Errorf("expected status %q, got %q", StatusDegraded, status.Status)
	}

	slowResult := status.Checks["slow"]
	if slowResult.Status != StatusUnhealthy {
		t.Errorf("expected slow check to be unhealthy, got %q", slowResult.Status)
	}
	if slowResult.Message != "health check timeout" {
		t.Errorf("expected timeout message, got %q", slowResult.Message)
	}
}

// TestCheckReadiness_ContextCancellation tests readiness with context cancellation.
func TestCheckReadiness_ContextCancellation(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("registry", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
			return nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	status := checker.CheckReadiness(ctx)

	// Check should fail due to cancellation
	result := status.Checks["registry"]
	if result.Status != StatusUnhealthy {
		t.Errorf("expected registry check to be unhealthy, got %q", result.Status)
	}
}

// TestLivenessHandler tests the liveness HTTP handler.
func TestLivenessHandler(t *testing.T) {
	checker := New(5 * time.Second)
	handler := checker.LivenessHandler()

	tests := []struct {
		name           string
		method         string
		expectedStatus int
		checkBody      bool
	}{
		{
			name:           "GET request",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			checkBody:      true,
		},
		{
			name:           "HEAD request",
			method:         http.MethodHead,
			expectedStatus: http.StatusOK,
			checkBody:      false,
		},
		{
			name:           "POST request",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
			checkBody:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/healthz", nil)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			if tt.checkBody {
				var status HealthStatus
				if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}

				if status.Status != StatusOK {
					t.Errorf("expected status %q, got %q", StatusOK, status.Status)
				}
			}
		})
	}
}

// TestReadinessHandler tests the readiness HTTP handler.
func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name           string
		setupChecks    func(*Checker)
		expectedStatus int
		expectedHealth string
	}{
		{
			name: "all healthy",
			setupChecks: func(c *Checker) {
				c.RegisterCheck("registry", func(ctx context.Context) error { return nil })
			},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusReady,
		},
		{
			name: "some unhealthy",
			setupChecks: func(c *Checker) {
				c.RegisterCheck("registry", func(ctx context.Context) error { return nil })
				c.RegisterCheck("formulary", func(ctx context.Context) error {
					return errors.New("failed")
				})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: StatusDegraded,
		},
		{
			name:           "no checks",
			setupChecks:    func(c *Checker) {},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusReady,
		},
		{
			name: "disabled component stays ready",
			setupChecks: func(c *Checker) {
				c.RegisterCheck("registry", func(ctx context.Context) error { return nil })
				c.RegisterCheck("audit", Disabled())
			},
			expectedStatus: http.StatusOK,
			expectedHealth: StatusReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(5 * time.Second)
			tt.setupChecks(checker)

			handler := checker.ReadinessHandler()

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var status HealthStatus
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}

			if status.Status != tt.expectedHealth {
				t.Errorf("expected status %q, got %q", tt.expectedHealth, status.Status)
			}
		})
	}
}

// TestVersionHandler tests the version HTTP handler.
func TestVersionHandler(t *testing.T) {
	version := "0.1.0"
	commit := "abc123"
	buildTime := "2026-08-25T00:00:00Z"

	handler := VersionHandler(version, commit, buildTime)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if info.Version != version {
		t.Errorf("expected version %q, got %q", version, info.Version)
	}
	if info.Commit != commit {
		t.Errorf("expected commit %q, got %q", commit, info.Commit)
	}
	if info.BuildTime != buildTime {
		t.Errorf("expected build time %q, got %q", buildTime, info.BuildTime)
	}
	if info.GoVersion == "" {
		t.Error("expected non-empty go version")
	}
}

// TestCreateHandlers tests creating all handlers at once.
func TestCreateHandlers(t *testing.T) {
	checker := New(5 * time.Second)
	handlers := checker.CreateHandlers("0.1.0", "abc123", "2026-08-25")

	if handlers.Liveness == nil {
		t.Error("expected non-nil liveness handler")
	}
	if handlers.Readiness == nil {
		t.Error("expected non-nil readiness handler")
	}
	if handlers.Version == nil {
		t.Error("expected non-nil version handler")
	}
}

// TestRegisterRoutes tests registering endpoints at configured paths.
func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	checker := New(5 * time.Second)

	cfg := &config.HealthConfig{
		Enabled:       true,
		LivenessPath:  "/healthz",
		ReadinessPath: "/readyz",
		VersionPath:   "/version",
	}

	RegisterRoutes(mux, checker, cfg, "0.1.0", "abc123", "2026-08-25")

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/version", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
		})
	}
}

// TestRegisterRoutes_CustomPaths tests non-default endpoint paths.
func TestRegisterRoutes_CustomPaths(t *testing.T) {
	mux := http.NewServeMux()
	checker := New(5 * time.Second)

	cfg := &config.HealthConfig{
		Enabled:       true,
		LivenessPath:  "/internal/alive",
		ReadinessPath: "/internal/ready",
		VersionPath:   "/internal/version",
	}

	RegisterRoutes(mux, checker, cfg, "0.1.0", "abc123", "2026-08-25")

	req := httptest.NewRequest(http.MethodGet, "/internal/alive", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	// Default paths must not be registered
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for unregistered path, got %d", http.StatusNotFound, rec.Code)
	}
}

// TestRegisterRoutes_Disabled tests that nothing is registered when disabled.
func TestRegisterRoutes_Disabled(t *testing.T) {
	mux := http.NewServeMux()
	checker := New(5 * time.Second)

	cfg := &config.HealthConfig{
		Enabled:       false,
		LivenessPath:  "/healthz",
		ReadinessPath: "/readyz",
		VersionPath:   "/version",
	}

	RegisterRoutes(mux, checker, cfg, "0.1.0", "abc123", "2026-08-25")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d when disabled, got %d", http.StatusNotFound, rec.Code)
	}
}

// TestRateLimitedHandler tests the rate-limited handler.
func TestRateLimitedHandler(t *testing.T) {
	checker := New(5 * time.Second)
	baseHandler := checker.LivenessHandler()

	// Create rate-limited handler (2 req/s)
	handler := RateLimitedHandler(baseHandler, 2)

	// First two requests should succeed
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
		}
	}

	// Third request should be rate limited
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
}

// TestRateLimitedHandler_Disabled tests rate limiting with 0 or negative limit.
func TestRateLimitedHandler_Disabled(t *testing.T) {
	checker := New(5 * time.Second)
	baseHandler := checker.LivenessHandler()

	// Create rate-limited handler with 0 limit (disabled)
	handler := RateLimitedHandler(baseHandler, 0)

	// All requests should succeed
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i, http.StatusOK, rec.Code)
		}
	}
}

// TestConcurrentChecks tests concurrent health checks.
func TestConcurrentChecks(t *testing.T) {
	checker := New(5 * time.Second)

	// Register multiple checks
	for i := 0; i < 10; i++ {
		checker.RegisterCheck(fmt.Sprintf("component-%d", i), func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		})
	}

	// Run multiple concurrent readiness checks
	done := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		go func() {
			status := checker.CheckReadiness(context.Background())
			if status.Status != StatusReady {
				t.Errorf("expected status %q, got %q", StatusReady, status.Status)
			}
			done <- true
		}()
	}

	// Wait for all to complete
	for i := 0; i < 5; i++ {
		<-done
	}
}

// TestCheckResult_Duration tests that check results include duration.
func TestCheckResult_Duration(t *testing.T) {
	checker := New(5 * time.Second)

	checker.RegisterCheck("slow", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())

	slowResult := status.Checks["slow"]
	if slowResult.DurationMS < 50 {
		t.Errorf("expected duration >= 50ms, got %vms", slowResult.DurationMS)
	}
}

// TestCheckResult_DurationJSON tests that durations marshal as milliseconds.
func TestCheckResult_DurationJSON(t *testing.T) {
	result := CheckResult{
		Status:     StatusOK,
		DurationMS: 4.8,
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	ms, ok := decoded["duration_ms"].(float64)
	if !ok {
		t.Fatalf("expected numeric duration_ms, got %T", decoded["duration_ms"])
	}
	if ms != 4.8 {
		t.Errorf("expected duration_ms 4.8, got %v", ms)
	}
}
