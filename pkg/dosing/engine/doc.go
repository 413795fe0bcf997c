// Package engine implements the conversion orchestrator, the public
// entry point of the dosing engine.
//
// The Converter routes each request through the narrowest path that
// can satisfy it:
//
//   - identical unit tokens short-circuit to an identity step
//   - requests bridging mass and volume with a strength ratio in
//     context take the concentration path
//   - everything else goes to the device adapter, which also handles
//     purely standard conversions
//
// Every path ends the same way: the executed steps are scored for
// confidence, optionally traced, and assembled into a Result. Failures
// always surface as one of the five taxonomy error types from
// package errors.
//
// A Converter retains only its most recent result, to serve Explain.
// It is single-threaded by design: one conversion at a time per
// instance. Callers that share a Converter across goroutines must
// serialize access; the HTTP server in pkg/server does exactly that.
package engine
