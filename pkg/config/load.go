package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified
// path. The file is unmarshaled over DefaultConfig, so omitted fields
// keep their defaults and explicit values (including false booleans)
// win. The result is validated before it is returned.
//
// Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Catch fields the file explicitly zeroed.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow
// the naming convention GALEN_SECTION_FIELD (e.g.,
// GALEN_SERVER_LISTEN_ADDRESS) and always take precedence over
// file-based configuration.
//
// The loading sequence is:
//  1. Defaults
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation of the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format GALEN_SECTION_FIELD; values
// that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	if val := os.Getenv("GALEN_ENGINE_TRACE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Trace = b
		}
	}
	if val := os.Getenv("GALEN_ENGINE_TOLERANCE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Engine.Tolerance = f
		}
	}
	if val := os.Getenv("GALEN_ENGINE_MAX_STEPS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxSteps = i
		}
	}
	if val := os.Getenv("GALEN_ENGINE_STRICT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Strict = b
		}
	}

	// Formulary overrides
	if val := os.Getenv("GALEN_FORMULARY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Formulary.Enabled = b
		}
	}
	if val := os.Getenv("GALEN_FORMULARY_BACKEND"); val != "" {
		cfg.Formulary.Backend = val
	}
	if val := os.Getenv("GALEN_FORMULARY_SEED_PATH"); val != "" {
		cfg.Formulary.SeedPath = val
	}
	if val := os.Getenv("GALEN_FORMULARY_SQLITE_PATH"); val != "" {
		cfg.Formulary.SQLite.Path = val
	}
	if val := os.Getenv("GALEN_FORMULARY_CACHE_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Formulary.Cache.Size = i
		}
	}

	// Guardrails overrides
	if val := os.Getenv("GALEN_GUARDRAILS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Guardrails.Enabled = b
		}
	}
	if val := os.Getenv("GALEN_GUARDRAILS_RULE_PATH"); val != "" {
		cfg.Guardrails.RulePath = val
	}
	if val := os.Getenv("GALEN_GUARDRAILS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Guardrails.Watch = b
		}
	}

	// Audit overrides
	if val := os.Getenv("GALEN_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("GALEN_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("GALEN_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("GALEN_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}
	if val := os.Getenv("GALEN_AUDIT_RETENTION_ARCHIVE_PATH"); val != "" {
		cfg.Audit.Retention.ArchivePath = val
	}

	// Telemetry overrides
	if val := os.Getenv("GALEN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GALEN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GALEN_TELEMETRY_LOGGING_REDACT_PHI"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Logging.RedactPHI = b
		}
	}
	if val := os.Getenv("GALEN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GALEN_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
	if val := os.Getenv("GALEN_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("GALEN_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("GALEN_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Server overrides
	if val := os.Getenv("GALEN_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("GALEN_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("GALEN_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("GALEN_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("GALEN_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("GALEN_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}
	if val := os.Getenv("GALEN_SERVER_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = i
		}
	}
}
