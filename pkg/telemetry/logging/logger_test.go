package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"meridianrx/galen/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid JSON config",
			config: Config{
				Level:      "info",
				Format:     "json",
				RedactPHI:  true,
				BufferSize: 100,
			},
			wantErr: false,
		},
		{
			name: "valid text config",
			config: Config{
				Level:      "debug",
				Format:     "text",
				RedactPHI:  false,
				BufferSize: 100,
			},
			wantErr: false,
		},
		{
			name: "invalid log level",
			config: Config{
				Level:      "invalid",
				Format:     "json",
				BufferSize: 100,
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: Config{
				Level:      "info",
				Format:     "invalid",
				BufferSize: 100,
			},
			wantErr: true,
		},
		{
			name: "console format rejected",
			config: Config{
				Level:      "info",
				Format:     "console",
				BufferSize: 100,
			},
			wantErr: true,
		},
		{
			name: "default buffer size",
			config: Config{
				Level:      "info",
				Format:     "json",
				BufferSize: 0, // Should use default
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Writer = buf

			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if logger != nil {
				logger.Shutdown()
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		logMethod func(*Logger, string)
		wantLog   bool
	}{
		{
			name:      "debug level logs debug",
			logLevel:  "debug",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   true,
		},
		{
			name:      "debug level logs info",
			logLevel:  "debug",
			logMethod: func(l *Logger, msg string) { l.Info(msg) },
			wantLog:   true,
		},
		{
			name:      "info level filters debug",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Debug(msg) },
			wantLog:   false,
		},
		{
			name:      "info level logs info",
			logLevel:  "info",
			logMethod: func(l *Logger, msg string) { l.Info(msg) },
			wantLog:   true,
		},
		{
			name:      "warn level filters info",
			logLevel:  "warn",
			logMethod: func(l *Logger, msg string) { l.Info(msg) },
			wantLog:   false,
		},
		{
			name:      "warn level logs warn",
			logLevel:  "warn",
			logMethod: func(l *Logger, msg string) { l.Warn(msg) },
			wantLog:   true,
		},
		{
			name:      "error level filters warn",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Warn(msg) },
			wantLog:   false,
		},
		{
			name:      "error level logs error",
			logLevel:  "error",
			logMethod: func(l *Logger, msg string) { l.Error(msg) },
			wantLog:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{
				Level:      tt.logLevel,
				Format:     "json",
				RedactPHI:  false,
				BufferSize: 100,
				Writer:     buf,
			})
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}

			testMsg := "test message"
			tt.logMethod(logger, testMsg)

			// Shutdown flushes the async buffer before we read it
			logger.Shutdown()

			output := buf.String()
			hasLog := strings.Contains(output, testMsg)

			if hasLog != tt.wantLog {
				t.Errorf("Log filtering failed: got log=%v, want log=%v, output=%s",
					hasLog, tt.wantLog, output)
			}
		})
	}
}

func TestLogger_StructuredFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("conversion complete",
		"string_field", "value",
		"int_field", 42,
		"float_field", 3.14,
		"bool_field", true,
	)

	logger.Shutdown()
	output := buf.String()

	// Check that all fields are present in JSON output
	expectedFields := []string{
		"conversion complete",
		"string_field",
		"value",
		"int_field",
		"42",
		"float_field",
		"3.14",
		"bool_field",
		"true",
	}

	for _, field := range expectedFields {
		if !strings.Contains(output, field) {
			t.Errorf("Expected field %q not found in output: %s", field, output)
		}
	}
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Create logger with additional fields
	childLogger := logger.With("request_id", "req-123", "component", "engine")
	childLogger.Info("test message")

	logger.Shutdown()
	output := buf.String()

	// Check that child logger fields are present
	expectedFields := []string{"request_id", "req-123", "component", "engine", "test message"}
	for _, field := range expectedFields {
		if !strings.Contains(output, field) {
			t.Errorf("Expected field %q not found in output: %s", field, output)
		}
	}
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Create context with fields
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-456")
	ctx = WithMedication(ctx, "med-acetaminophen-325")
	ctx = WithActor(ctx, "pharmacist-17")

	// Create logger from context
	ctxLogger := logger.WithContext(ctx)
	ctxLogger.Info("test message")

	logger.Shutdown()
	output := buf.String()

	// Check that context fields are present
	expectedFields := []string{
		"request_id", "req-456",
		"medication", "med-acetaminophen-325",
		"actor", "pharmacist-17",
	}
	for _, field := range expectedFields {
		if !strings.Contains(output, field) {
			t.Errorf("Expected field %q not found in output: %s", field, output)
		}
	}
}

func TestLogger_PHIRedaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  true,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// Log fields carrying PHI values and sensitive keys
	logger.Info("conversion requested",
		"contact", "patient@example.com",
		"record", "MRN-00482917",
		"patient_ref", "PT-2024-0017",
	)

	logger.Shutdown()
	output := buf.String()

	// Original PHI should NOT be present
	phiValues := []string{
		"patient@example.com",
		"MRN-00482917",
		"PT-2024-0017",
	}

	for _, phi := range phiValues {
		if strings.Contains(output, phi) {
			t.Errorf("PHI value %q was not redacted in output: %s", phi, output)
		}
	}

	// Replacements should be present
	if !strings.Contains(output, "MRN-***") {
		t.Errorf("MRN replacement not found in output: %s", output)
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("conversion requested", "record", "MRN-00482917")

	logger.Shutdown()
	output := buf.String()

	if !strings.Contains(output, "MRN-00482917") {
		t.Errorf("Value redacted with RedactPHI disabled: %s", output)
	}
}

func TestLogger_ContextMethods(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-789")

	tests := []struct {
		name   string
		method func(*Logger)
		level  string
	}{
		{
			name:   "DebugContext",
			method: func(l *Logger) { l.DebugContext(ctx, "debug message") },
			level:  "DEBUG",
		},
		{
			name:   "InfoContext",
			method: func(l *Logger) { l.InfoContext(ctx, "info message") },
			level:  "INFO",
		},
		{
			name:   "WarnContext",
			method: func(l *Logger) { l.WarnContext(ctx, "warn message") },
			level:  "WARN",
		},
		{
			name:   "ErrorContext",
			method: func(l *Logger) { l.ErrorContext(ctx, "error message") },
			level:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{
				Level:      "debug",
				Format:     "json",
				RedactPHI:  false,
				BufferSize: 100,
				Writer:     buf,
			})
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}

			tt.method(logger)
			logger.Shutdown()

			output := buf.String()
			if !strings.Contains(output, "req-789") {
				t.Errorf("Context request_id not found in %s output: %s", tt.name, output)
			}
			if !strings.Contains(output, tt.level) {
				t.Errorf("Level %s not found in output: %s", tt.level, output)
			}
		})
	}
}

func TestLogger_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"JSON format", "json"},
		{"Text format", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, err := New(Config{
				Level:      "info",
				Format:     tt.format,
				RedactPHI:  false,
				BufferSize: 100,
				Writer:     buf,
			})
			if err != nil {
				t.Fatalf("Failed to create logger: %v", err)
			}

			logger.Info("test message", "key", "value")
			logger.Shutdown()

			output := buf.String()
			if output == "" {
				t.Errorf("No output for format %s", tt.format)
			}

			// All formats should include the message
			if !strings.Contains(output, "test message") {
				t.Errorf("Message not found in %s output: %s", tt.format, output)
			}
		})
	}
}

func TestLogger_AddSource(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		AddSource:  true,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("test message")
	logger.Shutdown()

	output := buf.String()

	// Should include source field with file and line information
	if !strings.Contains(output, "source") {
		t.Errorf("Source field not found in output: %s", output)
	}
	if !strings.Contains(output, "logger.go") {
		t.Errorf("Source file not found in output: %s", output)
	}
}

func TestLogger_Shutdown(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("message before shutdown")

	err = logger.Shutdown()
	if err != nil {
		t.Errorf("Shutdown returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "message before shutdown") {
		t.Errorf("Message logged before shutdown not found: %s", output)
	}

	// Writes after shutdown queue without draining; they must not panic
	logger.Info("message after shutdown")
}

func TestLogger_BufferDropsWhenFull(t *testing.T) {
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  false,
		BufferSize: 1,
		Writer:     &bytes.Buffer{},
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	logger.Shutdown()

	// The writer goroutine has exited, so entries accumulate in the
	// channel. Capacity is 1: the first write queues, the rest drop.
	for i := 0; i < 5; i++ {
		logger.Info("overflow")
	}

	if got := logger.DroppedCount(); got != 4 {
		t.Errorf("DroppedCount() = %d, want 4", got)
	}
}

func TestLogger_Slog(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:      "info",
		Format:     "json",
		RedactPHI:  true,
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	sl := logger.Slog()
	if sl == nil {
		t.Fatal("Slog() returned nil")
	}

	sl.Info("scheduler started", "jobs", 3)
	logger.Shutdown()

	output := buf.String()
	if !strings.Contains(output, "scheduler started") {
		t.Errorf("Slog() output not routed through buffer: %s", output)
	}
	if !strings.Contains(output, "jobs") {
		t.Errorf("Slog() attribute not found: %s", output)
	}
}

func TestLogger_CustomPatterns(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{
		Level:     "info",
		Format:    "json",
		RedactPHI: true,
		RedactPatterns: []config.RedactPattern{
			{Name: "rx_number", Pattern: `\bRX\d{7}\b`, Replacement: "RX-***"},
		},
		BufferSize: 100,
		Writer:     buf,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("fill recorded", "prescription", "RX1234567")
	logger.Shutdown()

	output := buf.String()
	if strings.Contains(output, "RX1234567") {
		t.Errorf("Custom pattern not applied: %s", output)
	}
	if !strings.Contains(output, "RX-***") {
		t.Errorf("Custom replacement not found: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"debug", false},
		{"DEBUG", false},
		{"info", false},
		{"INFO", false},
		{"", false}, // Default to info
		{"warn", false},
		{"WARN", false},
		{"warning", false},
		{"error", false},
		{"ERROR", false},
		{"invalid", true},
		{"trace", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"json", false},
		{"JSON", false},
		{"", false}, // Default to JSON
		{"text", false},
		{"TEXT", false},
		{"console", true},
		{"invalid", true},
		{"xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := parseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
