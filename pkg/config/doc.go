// Package config provides configuration management for Galen.
//
// This package handles loading, validating, and managing configuration
// from YAML files with environment variable overrides. It provides a
// type-safe configuration system with comprehensive validation and
// sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("galen.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("galen.yaml")
//
// A fully defaulted configuration needs no file at all:
//
//	cfg := config.DefaultConfig()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GALEN_SECTION_FIELD.
// For example:
//
//   - GALEN_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GALEN_AUDIT_SQLITE_PATH overrides audit.sqlite.path
//   - GALEN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based
// configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later
// overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// For application-wide configuration access, use the singleton pattern:
//
//	// At application startup
//	if err := config.Initialize("galen.yaml"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Anywhere in the application
//	cfg := config.GetConfig()
//	fmt.Println(cfg.Server.ListenAddress)
//
// For testing, prefer dependency injection with explicit Config
// instances rather than the global singleton.
//
// # Validation
//
// All configuration is validated automatically during loading.
// Validation includes:
//
//   - Required field checks (e.g., rule path when guardrails are enabled)
//   - Range validation (e.g., sample ratio must be 0.0-1.0)
//   - Option validation (e.g., audit backend must be 'memory' or 'sqlite')
//   - Logical validation (e.g., default query limit cannot exceed max limit)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - audit.backend: invalid backend "postgres": must be 'memory' or 'sqlite'
//	  - telemetry.tracing.sample_ratio: sample ratio must be between 0.0 and 1.0
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	engine:
//	  trace: true
//	  max_steps: 10
//
//	formulary:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/formulary.db"
//	  seed_path: "./formulary/"
//
//	guardrails:
//	  rule_path: "./guardrails.yaml"
//	  watch: true
//
//	audit:
//	  enabled: true
//	  backend: "sqlite"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
// # Thread Safety
//
// All configuration access is thread-safe. The singleton pattern uses
// read-write locks to allow concurrent reads while protecting against
// concurrent writes during reload operations.
package config
