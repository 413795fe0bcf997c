package main

import (
	"log/slog"
	"testing"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue float64
		wantUnit  string
		wantErr   bool
	}{
		{
			name:      "integer with space",
			input:     "325 mg",
			wantValue: 325,
			wantUnit:  "mg",
		},
		{
			name:      "decimal without space",
			input:     "0.5mL",
			wantValue: 0.5,
			wantUnit:  "mL",
		},
		{
			name:      "scientific notation",
			input:     "2.5e3 mcg",
			wantValue: 2500,
			wantUnit:  "mcg",
		},
		{
			name:      "device token",
			input:     "2 {tablet}",
			wantValue: 2,
			wantUnit:  "{tablet}",
		},
		{
			name:      "compound unit",
			input:     "5 mg/mL",
			wantValue: 5,
			wantUnit:  "mg/mL",
		},
		{
			name:      "surrounding whitespace",
			input:     "  10   mg  ",
			wantValue: 10,
			wantUnit:  "mg",
		},
		{
			name:    "bare number",
			input:   "325",
			wantErr: true,
		},
		{
			name:    "missing value",
			input:   "mg",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := parseQuantity(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseQuantity(%q) = %+v, want error", tt.input, q)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuantity(%q) returned error: %v", tt.input, err)
			}
			if q.Value != tt.wantValue {
				t.Errorf("parseQuantity(%q).Value = %v, want %v", tt.input, q.Value, tt.wantValue)
			}
			if q.Unit != tt.wantUnit {
				t.Errorf("parseQuantity(%q).Unit = %q, want %q", tt.input, q.Unit, tt.wantUnit)
			}
		})
	}
}

func TestParseRatio(t *testing.T) {
	t.Run("concentration ratio", func(t *testing.T) {
		r, err := parseRatio("250 mg/5 mL")
		if err != nil {
			t.Fatalf("parseRatio() returned error: %v", err)
		}
		if r.Numerator.Value != 250 || r.Numerator.Unit != "mg" {
			t.Errorf("Numerator = %+v, want 250 mg", r.Numerator)
		}
		if r.Denominator.Value != 5 || r.Denominator.Unit != "mL" {
			t.Errorf("Denominator = %+v, want 5 mL", r.Denominator)
		}
	})

	t.Run("missing denominator", func(t *testing.T) {
		if _, err := parseRatio("250 mg"); err == nil {
			t.Error("parseRatio() without a denominator should return error")
		}
	})

	t.Run("unparseable side", func(t *testing.T) {
		if _, err := parseRatio("mg/5 mL"); err == nil {
			t.Error("parseRatio() with an unparseable numerator should return error")
		}
	})
}

func TestParseFactor(t *testing.T) {
	t.Run("device factor", func(t *testing.T) {
		cc, err := parseFactor("{scoop}=g=4.7")
		if err != nil {
			t.Fatalf("parseFactor() returned error: %v", err)
		}
		if cc.From != "{scoop}" {
			t.Errorf("From = %q, want %q", cc.From, "{scoop}")
		}
		if cc.To != "g" {
			t.Errorf("To = %q, want %q", cc.To, "g")
		}
		if cc.Factor != 4.7 {
			t.Errorf("Factor = %v, want 4.7", cc.Factor)
		}
	})

	t.Run("missing parts", func(t *testing.T) {
		if _, err := parseFactor("{scoop}=4.7"); err == nil {
			t.Error("parseFactor() with two parts should return error")
		}
	})

	t.Run("non-numeric factor", func(t *testing.T) {
		if _, err := parseFactor("{scoop}=g=lots"); err == nil {
			t.Error("parseFactor() with a non-numeric value should return error")
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.level); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
