package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in
// tests. It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for
// testing. The resulting configuration is valid and can be used
// immediately.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: DefaultConfig()}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithReadTimeout sets the server read timeout.
func (b *ConfigBuilder) WithReadTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Server.ReadTimeout = d
	return b
}

// WithEngineStrict sets strict precision mode.
func (b *ConfigBuilder) WithEngineStrict(strict bool) *ConfigBuilder {
	b.cfg.Engine.Strict = strict
	return b
}

// WithEngineMaxSteps sets the conversion step bound.
func (b *ConfigBuilder) WithEngineMaxSteps(n int) *ConfigBuilder {
	b.cfg.Engine.MaxSteps = n
	return b
}

// WithFormularyBackend sets the formulary backend.
func (b *ConfigBuilder) WithFormularyBackend(backend string) *ConfigBuilder {
	b.cfg.Formulary.Backend = backend
	return b
}

// WithFormularySQLitePath sets the formulary SQLite database path and
// selects the sqlite backend.
func (b *ConfigBuilder) WithFormularySQLitePath(path string) *ConfigBuilder {
	b.cfg.Formulary.Backend = "sqlite"
	b.cfg.Formulary.SQLite.Path = path
	return b
}

// WithGuardrailRules sets the guardrail rule path.
func (b *ConfigBuilder) WithGuardrailRules(path string) *ConfigBuilder {
	b.cfg.Guardrails.Enabled = true
	b.cfg.Guardrails.RulePath = path
	return b
}

// WithGuardrailsDisabled turns guardrail evaluation off.
func (b *ConfigBuilder) WithGuardrailsDisabled() *ConfigBuilder {
	b.cfg.Guardrails.Enabled = false
	return b
}

// WithAuditEnabled sets whether audit recording is enabled.
func (b *ConfigBuilder) WithAuditEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Audit.Enabled = enabled
	return b
}

// WithAuditBackend sets the audit storage backend.
func (b *ConfigBuilder) WithAuditBackend(backend string) *ConfigBuilder {
	b.cfg.Audit.Backend = backend
	return b
}

// WithAuditSQLitePath sets the audit SQLite database path and selects
// the sqlite backend.
func (b *ConfigBuilder) WithAuditSQLitePath(path string) *ConfigBuilder {
	b.cfg.Audit.Backend = "sqlite"
	b.cfg.Audit.SQLite.Path = path
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithLoggingFormat sets the logging format.
func (b *ConfigBuilder) WithLoggingFormat(format string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Format = format
	return b
}

// WithMetricsEnabled sets whether metrics are enabled.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Telemetry.Metrics.Enabled = enabled
	return b
}

// WithTracingEnabled sets whether tracing is enabled and its endpoint.
func (b *ConfigBuilder) WithTracingEnabled(enabled bool, endpoint string) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = enabled
	b.cfg.Telemetry.Tracing.Endpoint = endpoint
	if b.cfg.Telemetry.Tracing.SampleRatio == 0 {
		b.cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
// This is useful for tests that don't care about most configuration
// values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
