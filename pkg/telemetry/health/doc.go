// Package health provides health check endpoints for Galen.
//
// # Overview
//
// The health package implements liveness and readiness probes for Kubernetes
// and other orchestration systems, along with a version information endpoint.
// It provides a framework for checking the health of the conversion engine's
// components.
//
// # Endpoints
//
// The package provides three endpoints, mounted at paths from the health
// configuration:
//
//   - /healthz: Liveness probe - indicates if the process is running
//   - /readyz: Readiness probe - indicates if the engine can serve conversions
//   - /version: Build information - version, commit, build time
//
// # Usage
//
//	// Create health checker
//	checker := health.NewFromConfig(&cfg.Telemetry.Health)
//
//	// Register component checks
//	checker.RegisterCheck("registry", func(ctx context.Context) error {
//	    if registry.Len() == 0 {
//	        return errors.New("no units registered")
//	    }
//	    return nil
//	})
//
//	// Mount HTTP handlers
//	mux := http.NewServeMux()
//	health.RegisterRoutes(mux, checker, &cfg.Telemetry.Health, version, commit, buildTime)
//
// # Liveness vs Readiness
//
// **Liveness Probe** (/healthz):
//   - Indicates if the process is alive and running
//   - Returns 200 OK if the process is alive
//   - Used by Kubernetes to restart pods
//   - Fast check (<10ms)
//
// **Readiness Probe** (/readyz):
//   - Indicates if the engine can serve conversions
//   - Runs all registered component health checks concurrently
//   - Returns 200 OK if all components are healthy
//   - Returns 503 Service Unavailable if any component is unhealthy
//   - Used by Kubernetes to route traffic
//
// # Component Health Checks
//
// Components register health check functions:
//
//	checker.RegisterCheck("formulary", func(ctx context.Context) error {
//	    return store.Ping(ctx)
//	})
//
// Common component checks:
//   - config: Configuration loaded and valid
//   - registry: Unit registry populated
//   - formulary: Formulary store reachable
//   - guardrails: Guardrail rules loaded
//   - audit: Audit store writable (if enabled)
//
// Components that are intentionally turned off register health.Disabled():
// they appear in the readiness response with status "disabled" but never
// degrade the overall status.
//
// # Example Responses
//
// Liveness response (/healthz):
//
//	{
//	    "status": "ok",
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
//
// Readiness response (/readyz):
//
//	{
//	    "status": "ready",
//	    "checks": {
//	        "config": {"status": "ok"},
//	        "registry": {"status": "ok", "duration_ms": 0.1},
//	        "formulary": {"status": "ok", "duration_ms": 4.8},
//	        "audit": {"status": "disabled"}
//	    },
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
//
// Degraded response (/readyz):
//
//	{
//	    "status": "degraded",
//	    "checks": {
//	        "config": {"status": "ok"},
//	        "formulary": {"status": "unhealthy", "message": "formulary store unavailable"},
//	        "registry": {"status": "ok"}
//	    },
//	    "timestamp": "2026-08-25T10:30:00Z"
//	}
//
// Version response (/version):
//
//	{
//	    "version": "0.1.0",
//	    "commit": "abc123def456",
//	    "build_time": "2026-08-25T00:00:00Z",
//	    "go_version": "go1.25.0"
//	}
package health
