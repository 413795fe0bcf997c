package config

import (
	"testing"
	"time"
)

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig().Build()

	// Verify defaults are applied
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}

	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
	}

	if cfg.Engine.MaxSteps != DefaultEngineMaxSteps {
		t.Errorf("expected max steps %d, got %d", DefaultEngineMaxSteps, cfg.Engine.MaxSteps)
	}

	if cfg.Guardrails.RulePath != DefaultGuardrailsRulePath {
		t.Errorf("expected rule path %q, got %q", DefaultGuardrailsRulePath, cfg.Guardrails.RulePath)
	}

	if cfg.Audit.Backend != DefaultAuditBackend {
		t.Errorf("expected audit backend %q, got %q", DefaultAuditBackend, cfg.Audit.Backend)
	}
}

func TestConfigBuilder_WithListenAddress(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:9090").
		Build()

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
}

func TestConfigBuilder_WithEngineSettings(t *testing.T) {
	cfg := NewTestConfig().
		WithEngineStrict(true).
		WithEngineMaxSteps(5).
		Build()

	if !cfg.Engine.Strict {
		t.Error("expected strict mode to be enabled")
	}
	if cfg.Engine.MaxSteps != 5 {
		t.Errorf("expected max steps 5, got %d", cfg.Engine.MaxSteps)
	}
}

func TestConfigBuilder_WithStorageBackends(t *testing.T) {
	tests := []struct {
		name    string
		builder func() *ConfigBuilder
		check   func(*testing.T, *Config)
	}{
		{
			name: "formulary sqlite",
			builder: func() *ConfigBuilder {
				return NewTestConfig().WithFormularySQLitePath("/tmp/formulary.db")
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Formulary.Backend != "sqlite" {
					t.Errorf("expected formulary backend %q, got %q", "sqlite", cfg.Formulary.Backend)
				}
				if cfg.Formulary.SQLite.Path != "/tmp/formulary.db" {
					t.Errorf("expected formulary path %q, got %q", "/tmp/formulary.db", cfg.Formulary.SQLite.Path)
				}
			},
		},
		{
			name: "formulary memory",
			builder: func() *ConfigBuilder {
				return NewTestConfig().WithFormularyBackend("memory")
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Formulary.Backend != "memory" {
					t.Errorf("expected formulary backend %q, got %q", "memory", cfg.Formulary.Backend)
				}
			},
		},
		{
			name: "audit sqlite",
			builder: func() *ConfigBuilder {
				return NewTestConfig().WithAuditSQLitePath("/tmp/audit.db")
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Audit.Backend != "sqlite" {
					t.Errorf("expected audit backend %q, got %q", "sqlite", cfg.Audit.Backend)
				}
				if cfg.Audit.SQLite.Path != "/tmp/audit.db" {
					t.Errorf("expected audit path %q, got %q", "/tmp/audit.db", cfg.Audit.SQLite.Path)
				}
			},
		},
		{
			name: "audit memory",
			builder: func() *ConfigBuilder {
				return NewTestConfig().WithAuditBackend("memory")
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Audit.Backend != "memory" {
					t.Errorf("expected audit backend %q, got %q", "memory", cfg.Audit.Backend)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.builder().Build()
			tt.check(t, cfg)
			if err := Validate(cfg); err != nil {
				t.Errorf("built config should be valid, got: %v", err)
			}
		})
	}
}

func TestConfigBuilder_WithGuardrailRules(t *testing.T) {
	cfg := NewTestConfig().
		WithGuardrailRules("/etc/galen/rules.yaml").
		Build()

	if !cfg.Guardrails.Enabled {
		t.Error("expected guardrails to be enabled")
	}
	if cfg.Guardrails.RulePath != "/etc/galen/rules.yaml" {
		t.Errorf("expected rule path %q, got %q", "/etc/galen/rules.yaml", cfg.Guardrails.RulePath)
	}
}

func TestConfigBuilder_ChainedCalls(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:8080").
		WithReadTimeout(45 * time.Second).
		WithGuardrailRules("/etc/galen/guardrails.yaml").
		WithLoggingLevel("debug").
		WithMetricsEnabled(true).
		Build()

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Error("chained WithListenAddress failed")
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Error("chained WithReadTimeout failed")
	}
	if cfg.Guardrails.RulePath != "/etc/galen/guardrails.yaml" {
		t.Error("chained WithGuardrailRules failed")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Error("chained WithLoggingLevel failed")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("chained WithMetricsEnabled failed")
	}
}

func TestMinimalConfig(t *testing.T) {
	cfg := MinimalConfig()

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	// Verify it's a valid config that would pass validation
	if err := Validate(cfg); err != nil {
		t.Errorf("minimal config should be valid, got error: %v", err)
	}
}
