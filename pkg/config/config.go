package config

import "time"

// Config is the root configuration for Galen. It covers the conversion
// engine defaults, the formulary and guardrail collaborators, the audit
// trail, telemetry, and the HTTP server. Zero values are filled in by
// ApplyDefaults; use DefaultConfig for a fully populated instance.
type Config struct {
	// Engine contains conversion engine settings.
	Engine EngineConfig `yaml:"engine"`

	// Formulary contains medication profile store settings.
	Formulary FormularyConfig `yaml:"formulary"`

	// Guardrails contains dose guardrail rule settings.
	Guardrails GuardrailsConfig `yaml:"guardrails"`

	// Audit contains conversion audit trail settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics, tracing, and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server contains HTTP server settings.
	Server ServerConfig `yaml:"server"`
}

// EngineConfig contains the default request options applied to
// conversions when the caller does not override them, plus the
// execution tracer settings.
type EngineConfig struct {
	// Trace enables per-conversion step recording.
	// Default: true
	Trace bool `yaml:"trace"`

	// TraceMaxEntries bounds the execution tracer's entry buffer.
	// Oldest entries are evicted first when the buffer fills.
	// Default: 1000
	TraceMaxEntries int `yaml:"trace_max_entries"`

	// Tolerance is the relative precision tolerance enforced when
	// Strict is set.
	// Default: 1e-6
	Tolerance float64 `yaml:"tolerance"`

	// MaxSteps bounds how many steps a single conversion may take.
	// Default: 10
	MaxSteps int `yaml:"max_steps"`

	// Strict fails conversions whose result cannot be represented
	// within Tolerance instead of returning a reduced-confidence
	// result.
	// Default: false
	Strict bool `yaml:"strict"`
}

// FormularyConfig contains configuration for the medication profile
// store that supplies conversion context (strength, concentration,
// device factors).
type FormularyConfig struct {
	// Enabled enables formulary lookups. When disabled, conversions
	// run with only the context supplied on the request.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the profile store backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SeedPath is an optional YAML file or directory of medication
	// profiles loaded into the store at startup.
	SeedPath string `yaml:"seed_path"`

	// SQLite contains SQLite backend settings.
	SQLite FormularySQLiteConfig `yaml:"sqlite"`

	// Cache contains profile cache settings.
	Cache FormularyCacheConfig `yaml:"cache"`
}

// FormularySQLiteConfig contains SQLite settings for the formulary
// store.
type FormularySQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/formulary.db"
	Path string `yaml:"path"`

	// CheckpointInterval is how often the write-ahead log is
	// checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`

	// BusyTimeout is how long to wait for a locked database before
	// failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// FormularyCacheConfig contains settings for the LRU cache in front of
// the profile store.
type FormularyCacheConfig struct {
	// Enabled enables the cache.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Size is the maximum number of cached profiles.
	// Default: 512
	Size int `yaml:"size"`
}

// GuardrailsConfig contains configuration for the dose guardrail rule
// engine.
type GuardrailsConfig struct {
	// Enabled enables guardrail evaluation on conversions.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// RulePath is the rule file or directory to load.
	// Default: "./guardrails.yaml"
	RulePath string `yaml:"rule_path"`

	// Watch reloads rules when the rule file changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceInterval is how long to wait after the last file event
	// before reloading. Editors fire bursts of events per save.
	// Default: 250ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// MaxFileSize is the largest rule file the parser will read, in
	// bytes.
	// Default: 1048576 (1MB)
	MaxFileSize int64 `yaml:"max_file_size"`
}

// AuditConfig contains configuration for the conversion audit trail.
type AuditConfig struct {
	// Enabled enables audit recording.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains audit recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains record retention settings.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains audit query settings.
	Query QueryConfig `yaml:"query"`

	// Export contains audit export settings.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite settings for audit storage.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for a locked database before
	// failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains settings for the async audit recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel. Records are
	// dropped (and counted) when the buffer is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the per-record storage write timeout.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HashContext stores a hash of the conversion context instead of
	// the context itself.
	// Default: true
	HashContext bool `yaml:"hash_context"`

	// RedactPatientRefs replaces patient references with a hash before
	// the record is stored.
	// Default: true
	RedactPatientRefs bool `yaml:"redact_patient_refs"`

	// MaxFieldLength is the maximum length of text fields before
	// truncation.
	// Default: 500
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig contains audit record retention settings.
type RetentionConfig struct {
	// Days is the number of days to retain records. 0 keeps records
	// forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete exports records to ArchivePath before they
	// are deleted.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archived records.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords caps the total number of stored records. 0 means
	// unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// QueryConfig contains audit query settings.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when the query
	// does not specify a limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest limit a query may request.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`

	// Timeout is the query execution timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig contains audit export settings.
type ExportConfig struct {
	// JSONPretty enables indented JSON output.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV output.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`

	// MaxExportSize is the maximum number of records per export.
	// Default: 1000000
	MaxExportSize int `yaml:"max_export_size"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing settings.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check settings.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes the source file and line in log output.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPHI redacts patient identifiers (MRNs, patient names,
	// birth dates) from log output.
	// Default: true
	RedactPHI bool `yaml:"redact_phi"`

	// BufferSize is the async log buffer size.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns adds custom redaction patterns on top of the
	// built-in ones.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern for logs.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the replacement text.
	// Default: "[REDACTED]"
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name namespace.
	// Default: "meridianrx"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric name subsystem.
	// Default: "galen"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the histogram buckets for conversion
	// duration, in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// ConfidenceBuckets are the histogram buckets for conversion
	// confidence scores.
	ConfidenceBuckets []float64 `yaml:"confidence_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled enables tracing. When disabled, a no-op tracer is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the sampling ratio when Sampler is "ratio".
	// Range: 0.0 to 1.0
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter selects the span exporter.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the exporter endpoint address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name reported on spans.
	// Default: "galen"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter settings.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables transport security for the exporter
	// connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// Enabled enables health check endpoints.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/healthz"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/readyz"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version info path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout is the per-check timeout for readiness checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on
	// a keep-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is how long graceful shutdown waits for in-flight
	// requests.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes is the maximum request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes is the maximum request body size.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}
