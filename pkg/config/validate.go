package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. It returns nil if the
// configuration is valid. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateFormulary(&cfg.Formulary)...)
	errs = append(errs, validateGuardrails(&cfg.Guardrails)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateServer(&cfg.Server)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateEngine validates conversion engine configuration.
func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.Tolerance < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.tolerance",
			Message: "tolerance must be non-negative",
		})
	}
	if cfg.Tolerance > 0.1 {
		errs = append(errs, FieldError{
			Field:   "engine.tolerance",
			Message: "tolerance exceeds reasonable limit (0.1)",
		})
	}

	if cfg.MaxSteps < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.max_steps",
			Message: "max steps must be non-negative",
		})
	}
	if cfg.MaxSteps > 100 {
		errs = append(errs, FieldError{
			Field:   "engine.max_steps",
			Message: "max steps exceeds reasonable limit (100)",
		})
	}

	if cfg.TraceMaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.trace_max_entries",
			Message: "trace max entries must be non-negative",
		})
	}

	return errs
}

// validateFormulary validates formulary configuration.
func validateFormulary(cfg *FormularyConfig) []FieldError {
	var errs []FieldError

	// If formulary is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "formulary.backend",
			Message: "backend is required when formulary is enabled",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "formulary.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "formulary.sqlite.path",
			Message: "SQLite path is required when backend is 'sqlite'",
		})
	}
	if cfg.SQLite.CheckpointInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "formulary.sqlite.checkpoint_interval",
			Message: "checkpoint interval must be positive",
		})
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		errs = append(errs, FieldError{
			Field:   "formulary.cache.size",
			Message: "cache size must be positive when the cache is enabled",
		})
	}

	return errs
}

// validateGuardrails validates guardrail configuration.
func validateGuardrails(cfg *GuardrailsConfig) []FieldError {
	var errs []FieldError

	// If guardrails are disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	if cfg.RulePath == "" {
		errs = append(errs, FieldError{
			Field:   "guardrails.rule_path",
			Message: "rule path is required when guardrails are enabled",
		})
	}

	if cfg.DebounceInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "guardrails.debounce_interval",
			Message: "debounce interval must be positive",
		})
	}

	if cfg.MaxFileSize < 0 {
		errs = append(errs, FieldError{
			Field:   "guardrails.max_file_size",
			Message: "max file size must be non-negative",
		})
	}

	return errs
}

// validateAudit validates audit trail configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	// If audit is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: "backend is required when audit is enabled",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite.path",
			Message: "SQLite path is required when backend is 'sqlite'",
		})
	}

	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.recorder.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.Recorder.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.Days > 3650 { // 10 years is excessive
		errs = append(errs, FieldError{
			Field:   "audit.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.retention.archive_path",
			Message: "archive path is required when archive before delete is enabled",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.max_records",
			Message: "max records must be non-negative",
		})
	}

	if cfg.Query.DefaultLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.query.default_limit",
			Message: "default limit must be positive",
		})
	}
	if cfg.Query.MaxLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "audit.query.max_limit",
			Message: "max limit must be positive",
		})
	}
	if cfg.Query.DefaultLimit > 0 && cfg.Query.MaxLimit > 0 && cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{
			Field:   "audit.query.default_limit",
			Message: "default limit cannot exceed max limit",
		})
	}

	if cfg.Export.MaxExportSize < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.export.max_export_size",
			Message: "max export size must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when tracing is enabled",
			})
		}
		if cfg.Tracing.Exporter != "" && cfg.Tracing.Exporter != "otlp" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("invalid exporter %q: must be 'otlp'", cfg.Tracing.Exporter),
			})
		}
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if cfg.Tracing.Sampler != "" && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check configuration
	if cfg.Health.Enabled {
		errs = append(errs, validateHealthPath("telemetry.health.liveness_path", "liveness path", cfg.Health.LivenessPath)...)
		errs = append(errs, validateHealthPath("telemetry.health.readiness_path", "readiness path", cfg.Health.ReadinessPath)...)
		errs = append(errs, validateHealthPath("telemetry.health.version_path", "version path", cfg.Health.VersionPath)...)

		if cfg.Health.CheckTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout exceeds reasonable limit (60s)",
			})
		}
	}

	return errs
}

// validateHealthPath checks that a health endpoint path is set and
// starts with a slash.
func validateHealthPath(field, what, path string) []FieldError {
	var errs []FieldError

	if path == "" {
		errs = append(errs, FieldError{
			Field:   field,
			Message: what + " is required when health checks are enabled",
		})
		return errs
	}
	if path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   field,
			Message: what + " must start with /",
		})
	}

	return errs
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	return errs
}
