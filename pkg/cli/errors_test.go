package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "server.listen_address",
		Message: "missing required field",
	}

	expected := "config error in server.listen_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestConfigErrorWithoutField(t *testing.T) {
	err := NewConfigError("", "cannot read config file")

	expected := "config error: cannot read config file"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("guardrails.rule_path", "file does not exist")
	if err.Field != "guardrails.rule_path" {
		t.Errorf("Field = %q, want guardrails.rule_path", err.Field)
	}
	if err.Message != "file does not exist" {
		t.Errorf("Message = %q, want the message", err.Message)
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &CommandError{
		Command: "convert",
		Err:     underlyingErr,
	}

	expected := "command convert failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("lint", underlyingErr)

	if err.Unwrap() != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlyingErr)
	}

	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should see through CommandError")
	}
}
