package health

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"meridianrx/galen/pkg/config"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns an HTTP handler for the liveness probe endpoint.
// It performs a simple check to verify the process is alive.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only accept GET requests
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.CheckLiveness(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}

// ReadinessHandler returns an HTTP handler for the readiness probe endpoint.
// It performs all registered component health checks.
//
// Returns:
//   - 200 OK: System is ready to serve conversions
//   - 503 Service Unavailable: System is not ready (degraded or unhealthy)
//
// Example response (ready):
//
//	{
//	    "status": "ready",
//	    "checks": {
//	        "registry": {"status": "ok", "duration_ms": 0.1},
//	        "formulary": {"status": "ok", "duration_ms": 5.2}
//	    },
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
//
// Example response (degraded):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "registry": {"status": "ok"},
//	        "formulary": {"status": "unhealthy", "message": "formulary store unavailable"}
//	    },
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only accept GET requests
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.CheckReadiness(r.Context())

		w.Header().Set("Content-Type", "application/json")

		// Return 503 if not ready
		if status.Status == StatusDegraded || status.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}

// VersionHandler returns an HTTP handler for the version information endpoint.
// It returns build information including version, commit, and build time.
//
// Example response:
//
//	{
//	    "version": "0.1.0",
//	    "commit": "abc123def456",
//	    "build_time": "2026-08-25T00:00:00Z",
//	    "go_version": "go1.25.0"
//	}
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Only accept GET requests
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(info)
		}
	}
}

// Handlers bundles all health check HTTP handlers.
type Handlers struct {
	// Liveness is the liveness probe handler
	Liveness http.HandlerFunc

	// Readiness is the readiness probe handler
	Readiness http.HandlerFunc

	// Version is the version info handler
	Version http.HandlerFunc
}

// CreateHandlers creates HTTP handlers for all health check endpoints.
// This is a convenience function to get all handlers at once.
//
// Usage:
//
//	handlers := checker.CreateHandlers("0.1.0", "abc123", "2026-08-25")
//	http.HandleFunc("/healthz", handlers.Liveness)
//	http.HandleFunc("/readyz", handlers.Readiness)
//	http.HandleFunc("/version", handlers.Version)
func (c *Checker) CreateHandlers(version, commit, buildTime string) Handlers {
	return Handlers{
		Liveness:  c.LivenessHandler(),
		Readiness: c.ReadinessHandler(),
		Version:   VersionHandler(version, commit, buildTime),
	}
}

// RegisterRoutes registers the health check endpoints on an HTTP mux at the
// paths named in the health configuration. A nil config uses the default
// paths. Nothing is registered when health endpoints are disabled.
//
// Usage:
//
//	mux := http.NewServeMux()
//	checker := health.NewFromConfig(&cfg.Telemetry.Health)
//	health.RegisterRoutes(mux, checker, &cfg.Telemetry.Health, "0.1.0", "abc123", "2026-08-25")
func RegisterRoutes(mux *http.ServeMux, checker *Checker, cfg *config.HealthConfig, version, commit, buildTime string) {
	livenessPath := config.DefaultHealthLiveness
	readinessPath := config.DefaultHealthReadiness
	versionPath := config.DefaultHealthVersion

	if cfg != nil {
		if !cfg.Enabled {
			return
		}
		if cfg.LivenessPath != "" {
			livenessPath = cfg.LivenessPath
		}
		if cfg.ReadinessPath != "" {
			readinessPath = cfg.ReadinessPath
		}
		if cfg.VersionPath != "" {
			versionPath = cfg.VersionPath
		}
	}

	handlers := checker.CreateHandlers(version, commit, buildTime)

	mux.HandleFunc(livenessPath, handlers.Liveness)
	mux.HandleFunc(readinessPath, handlers.Readiness)
	mux.HandleFunc(versionPath, handlers.Version)
}

// RateLimitedHandler wraps a handler with simple rate limiting.
// It prevents health check endpoint abuse by limiting requests per second.
//
// Usage:
//
//	handler := RateLimitedHandler(checker.LivenessHandler(), 10) // 10 req/s
//	http.HandleFunc("/healthz", handler)
func RateLimitedHandler(handler http.HandlerFunc, requestsPerSecond int) http.HandlerFunc {
	if requestsPerSecond <= 0 {
		return handler
	}

	limiter := make(chan struct{}, requestsPerSecond)

	// Fill the channel
	for i := 0; i < requestsPerSecond; i++ {
		limiter <- struct{}{}
	}

	// Refill at rate
	ticker := time.NewTicker(time.Second / time.Duration(requestsPerSecond))
	go func() {
		for range ticker.C {
			select {
			case limiter <- struct{}{}:
			default:
			}
		}
	}()

	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-limiter:
			handler(w, r)
		default:
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		}
	}
}
