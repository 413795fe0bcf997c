// Package server provides the HTTP API over the conversion engine.
//
// This package ties together the engine, formulary, guardrails, audit
// trail and telemetry behind a small JSON API and provides server
// lifecycle management including start, graceful shutdown and signal
// handling.
//
// # Architecture
//
// The server is a thin orchestrator:
//   - Sets up HTTP routes and handlers
//   - Chains middleware for request IDs, logging and panic recovery
//   - Serializes access to the single-threaded conversion engine
//   - Manages graceful shutdown on SIGTERM/SIGINT
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "meridianrx/galen/pkg/config"
//	    "meridianrx/galen/pkg/dosing/engine"
//	    "meridianrx/galen/pkg/server"
//	)
//
//	cfg := config.GetConfig()
//
//	srv, err := server.New(&cfg.Server, server.Deps{
//	    Engine:     engine.New(nil),
//	    Formulary:  contextBuilder,
//	    Guardrails: evaluator,
//	    Audit:      auditRecorder,
//	    Telemetry:  tel,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// Only the engine is required. Absent dependencies degrade their
// feature: no formulary rejects medication lookups, no evaluator skips
// guardrails, no recorder disables auditing, no telemetry falls back
// to slog.Default() and serves no health or metrics endpoints.
//
// # Routes
//
//	POST /v1/convert                     convert a dose, evaluate guardrails
//	POST /v1/validate                    validate a unit token
//	GET  /v1/units/{unit}/compatible     list conversion targets for a unit
//	GET  /healthz                        liveness probe
//	GET  /readyz                         readiness probe
//	GET  /version                        build information
//	GET  /metrics                        Prometheus exposition
//
// The health, version and metrics routes come from the telemetry
// dependency and follow its configuration, including custom paths.
// Device unit tokens in the compatible route arrive URL-encoded:
// /v1/units/%7Btablet%7D/compatible.
//
// # Request Handling
//
// Request bodies are JSON, bounded by the configured MaxBodyBytes and
// decoded strictly: unknown fields are rejected rather than silently
// dropped, because a misspelled field in a dosing request changes the
// result. Errors map the conversion error taxonomy onto HTTP statuses:
//
//	invalid_unit                400
//	impossible_conversion       422
//	missing_context             422
//	precision_loss              422
//	conversion_failed           422
//	medication/lot not found    404
//	anything else               500 (opaque)
//
// A guardrail "block" decision does not change the HTTP status; the
// conversion succeeded and the response carries the verdict for the
// dispensing system to act on.
//
// # Graceful Shutdown
//
// The server shuts down on SIGTERM/SIGINT, on context cancellation, or
// programmatically:
//
//	if err := srv.Shutdown(context.Background()); err != nil {
//	    logger.Error("shutdown error", "error", err)
//	}
//
// Shutdown stops accepting connections and waits up to the configured
// shutdown timeout for in-flight requests. The audit recorder and
// telemetry are owned by the caller and are closed after the server
// stops, so late records and spans still flush.
//
// # Thread Safety
//
// The conversion engine performs one conversion at a time, and the
// guardrail evaluator normalizes doses through its own engine with the
// same contract. The server serializes both behind one mutex, so
// concurrent HTTP requests are safe but conversions do not run in
// parallel. Unit validation and compatibility lookups read immutable
// state and run concurrently; the device registry must not be mutated
// once the server is started.
package server
