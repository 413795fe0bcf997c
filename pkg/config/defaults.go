package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineTrace           = true
	DefaultEngineTraceMaxEntries = 1000
	DefaultEngineTolerance       = 1e-6
	DefaultEngineMaxSteps        = 10

	// Formulary defaults
	DefaultFormularyEnabled            = true
	DefaultFormularyBackend            = "memory"
	DefaultFormularySQLitePath         = "data/formulary.db"
	DefaultFormularyCheckpointInterval = 5 * time.Minute
	DefaultFormularyBusyTimeout        = 5 * time.Second
	DefaultFormularyCacheEnabled       = true
	DefaultFormularyCacheSize          = 512

	// Guardrails defaults
	DefaultGuardrailsEnabled          = true
	DefaultGuardrailsRulePath         = "./guardrails.yaml"
	DefaultGuardrailsDebounceInterval = 250 * time.Millisecond
	DefaultGuardrailsMaxFileSize      = int64(1048576) // 1MB

	// Audit defaults
	DefaultAuditEnabled              = true
	DefaultAuditBackend              = "sqlite"
	DefaultAuditSQLitePath           = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns   = 10
	DefaultAuditSQLiteMaxIdleConns   = 5
	DefaultAuditSQLiteWALMode        = true
	DefaultAuditSQLiteBusyTimeout    = 5 * time.Second
	DefaultAuditRecorderAsyncBuffer  = 1000
	DefaultAuditRecorderWriteTimeout = 5 * time.Second
	DefaultAuditRecorderHashContext  = true
	DefaultAuditRecorderRedactRefs   = true
	DefaultAuditRecorderMaxFieldLen  = 500
	DefaultAuditRetentionDays        = 90
	DefaultAuditRetentionSchedule    = "0 3 * * *"
	DefaultAuditRetentionArchivePath = "data/archives/"
	DefaultAuditQueryDefaultLimit    = 100
	DefaultAuditQueryMaxLimit        = 10000
	DefaultAuditQueryTimeout         = 30 * time.Second
	DefaultAuditExportJSONPretty     = true
	DefaultAuditExportCSVHeader      = true
	DefaultAuditExportMaxSize        = 1000000

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPHI   = true
	DefaultLoggingBufferSize  = 10000
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "meridianrx"
	DefaultMetricsSubsystem   = "galen"
	DefaultTracingEnabled     = false
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "galen"
	DefaultOTLPInsecure       = true
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultHealthLiveness     = "/healthz"
	DefaultHealthReadiness    = "/readyz"
	DefaultHealthVersion      = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576        // 1MB
	DefaultMaxBodyBytes    = int64(1048576) // 1MB
)

// Default histogram buckets. Conversions are pure computation, so the
// duration buckets run from a microsecond to ten milliseconds.
var (
	DefaultDurationBuckets = []float64{
		0.000001, 0.000005, 0.00001, 0.00005,
		0.0001, 0.0005, 0.001, 0.005, 0.01,
	}

	DefaultConfidenceBuckets = []float64{
		0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0,
	}
)

// DefaultConfig returns a configuration with every default applied,
// including the booleans whose default is true. This is the canonical
// starting point: LoadConfig unmarshals the file over this struct, so
// an explicit "false" in the file survives.
func DefaultConfig() *Config {
	cfg := &Config{
		Engine: EngineConfig{
			Trace: DefaultEngineTrace,
		},
		Formulary: FormularyConfig{
			Enabled: DefaultFormularyEnabled,
			Cache: FormularyCacheConfig{
				Enabled: DefaultFormularyCacheEnabled,
			},
		},
		Guardrails: GuardrailsConfig{
			Enabled: DefaultGuardrailsEnabled,
		},
		Audit: AuditConfig{
			Enabled: DefaultAuditEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultAuditSQLiteWALMode,
			},
			Recorder: RecorderConfig{
				HashContext:       DefaultAuditRecorderHashContext,
				RedactPatientRefs: DefaultAuditRecorderRedactRefs,
			},
			Export: ExportConfig{
				JSONPretty:       DefaultAuditExportJSONPretty,
				CSVIncludeHeader: DefaultAuditExportCSVHeader,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactPHI: DefaultLoggingRedactPHI,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				OTLP: OTLPConfig{
					Insecure: DefaultOTLPInsecure,
				},
			},
			Health: HealthConfig{
				Enabled: DefaultHealthEnabled,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. It is
// idempotent and safe to call multiple times.
//
// Boolean fields are left as given: false is indistinguishable from
// unset here, so the booleans that default to true are seeded by
// DefaultConfig instead.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.TraceMaxEntries == 0 {
		cfg.Engine.TraceMaxEntries = DefaultEngineTraceMaxEntries
	}
	if cfg.Engine.Tolerance == 0 {
		cfg.Engine.Tolerance = DefaultEngineTolerance
	}
	if cfg.Engine.MaxSteps == 0 {
		cfg.Engine.MaxSteps = DefaultEngineMaxSteps
	}

	// Formulary defaults
	if cfg.Formulary.Backend == "" {
		cfg.Formulary.Backend = DefaultFormularyBackend
	}
	if cfg.Formulary.SQLite.Path == "" {
		cfg.Formulary.SQLite.Path = DefaultFormularySQLitePath
	}
	if cfg.Formulary.SQLite.CheckpointInterval == 0 {
		cfg.Formulary.SQLite.CheckpointInterval = DefaultFormularyCheckpointInterval
	}
	if cfg.Formulary.SQLite.BusyTimeout == 0 {
		cfg.Formulary.SQLite.BusyTimeout = DefaultFormularyBusyTimeout
	}
	if cfg.Formulary.Cache.Size == 0 {
		cfg.Formulary.Cache.Size = DefaultFormularyCacheSize
	}

	// Guardrails defaults
	if cfg.Guardrails.RulePath == "" {
		cfg.Guardrails.RulePath = DefaultGuardrailsRulePath
	}
	if cfg.Guardrails.DebounceInterval == 0 {
		cfg.Guardrails.DebounceInterval = DefaultGuardrailsDebounceInterval
	}
	if cfg.Guardrails.MaxFileSize == 0 {
		cfg.Guardrails.MaxFileSize = DefaultGuardrailsMaxFileSize
	}

	applyAuditDefaults(cfg)
	applyTelemetryDefaults(cfg)
	applyServerDefaults(cfg)
}

// applyAuditDefaults fills zero-valued audit fields.
func applyAuditDefaults(cfg *Config) {
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}

	// SQLite defaults
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.Audit.SQLite.MaxOpenConns == 0 {
		cfg.Audit.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.Audit.SQLite.MaxIdleConns == 0 {
		cfg.Audit.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}

	// Recorder defaults
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = DefaultAuditRecorderAsyncBuffer
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = DefaultAuditRecorderWriteTimeout
	}
	if cfg.Audit.Recorder.MaxFieldLength == 0 {
		cfg.Audit.Recorder.MaxFieldLength = DefaultAuditRecorderMaxFieldLen
	}

	// Retention defaults
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = DefaultAuditRetentionSchedule
	}
	if cfg.Audit.Retention.ArchivePath == "" {
		cfg.Audit.Retention.ArchivePath = DefaultAuditRetentionArchivePath
	}

	// Query defaults
	if cfg.Audit.Query.DefaultLimit == 0 {
		cfg.Audit.Query.DefaultLimit = DefaultAuditQueryDefaultLimit
	}
	if cfg.Audit.Query.MaxLimit == 0 {
		cfg.Audit.Query.MaxLimit = DefaultAuditQueryMaxLimit
	}
	if cfg.Audit.Query.Timeout == 0 {
		cfg.Audit.Query.Timeout = DefaultAuditQueryTimeout
	}

	// Export defaults
	if cfg.Audit.Export.MaxExportSize == 0 {
		cfg.Audit.Export.MaxExportSize = DefaultAuditExportMaxSize
	}
}

// applyTelemetryDefaults fills zero-valued telemetry fields.
func applyTelemetryDefaults(cfg *Config) {
	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.BufferSize == 0 {
		cfg.Telemetry.Logging.BufferSize = DefaultLoggingBufferSize
	}

	// Metrics defaults
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = DefaultDurationBuckets
	}
	if len(cfg.Telemetry.Metrics.ConfidenceBuckets) == 0 {
		cfg.Telemetry.Metrics.ConfidenceBuckets = DefaultConfidenceBuckets
	}

	// Tracing defaults
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	// Health defaults
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLiveness
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadiness
	}
	if cfg.Telemetry.Health.VersionPath == "" {
		cfg.Telemetry.Health.VersionPath = DefaultHealthVersion
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// applyServerDefaults fills zero-valued server fields.
func applyServerDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
}
