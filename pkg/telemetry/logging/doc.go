// Package logging provides structured logging with PHI redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Automatic PHI redaction (medical record numbers, SSNs, emails)
//   - Context-aware logging with request and conversion metadata
//   - Async buffering for non-blocking writes
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Create a logger
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPHI: true,
//	})
//
//	// Log structured data
//	logger.Info("conversion recorded",
//	    "medication", "med-acetaminophen-325",
//	    "patient_ref", "PT-2024-0017",  // Automatically masked
//	    "duration_us", 180,
//	)
//
//	// Create context-aware logger
//	ctx := logging.WithRequestID(ctx, "req-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("converting")  // Includes request_id automatically
//
// # PHI Redaction
//
// Protected values are redacted from log fields when RedactPHI is enabled:
//
//   - Medical record numbers: MRN-00482917 → MRN-***
//   - SSN: 123-45-6789 → ***-**-****
//   - Emails: user@example.com → ***@***
//   - IP addresses: 192.168.1.100 → *.*.*.*
//   - Sensitive keys (patient_*, mrn, date_of_birth): value → ***
//
// Dates of birth are caught by key name only; a date-shaped value
// pattern would also destroy every timestamp in the stream.
//
// # Performance
//
// Async buffering keeps logging off the conversion path:
//   - Near-zero cost when log level filters out the message
//   - One channel send when writing to the buffer
//   - Entries are dropped and counted if the buffer is full
package logging
