// Package recorder builds conversion audit records and writes them to
// a storage backend asynchronously.
//
// # Recording flow
//
// Conversions are synchronous, so a single Record call captures the
// whole exchange:
//
//  1. Caller runs the conversion (and optionally the guardrails)
//  2. Caller hands the request, result or error, verdict, and timing
//     to Record as one Entry
//  3. Record builds the ConversionRecord, redacts and hashes, and
//     enqueues it (non-blocking)
//  4. A background goroutine drains the channel and writes to storage
//  5. Close drains the channel before exit (zero data loss)
//
// # Redaction
//
// Patient references are redacted before the record leaves the
// recorder: the stored value is the SHA-256 hash of the identifier,
// which keeps records for the same patient correlatable without ever
// persisting the identifier itself. The conversion context is stored
// only as a SHA-256 hash; medication name and lot number are copied
// out first because queries filter on them.
//
// # Field truncation
//
// Error messages and guardrail reasons are truncated to
// MaxFieldLength (default 500 characters) to keep record size
// bounded.
//
// # Thread safety
//
// Record and Close are safe for concurrent use. The background
// goroutine is the only writer to storage.
package recorder
