// Package trace implements the optional execution tracer for the
// conversion engine.
//
// The tracer records timestamped entries for every stage of a
// conversion: operation start and end pairs, validation outcomes,
// individual steps, factor resolutions, confidence computation and
// errors. Entries live in a bounded in-memory buffer; when the buffer
// fills, the oldest entries are evicted first.
//
// Matching Begin/End calls are paired by operation name and feed
// per-operation duration aggregates (count, total, min, max), which
// the exports summarize along with a bottleneck marker for operations
// whose average duration dominates the trace.
//
// Export renders the buffer as machine-readable JSON, a Graphviz DOT
// digraph, or a human-readable text report. A disabled tracer accepts
// every call as a no-op past a single flag check, so tracing can stay
// wired in production without measurable cost.
package trace
