package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	data := "2000 mg"

	output, err := formatter.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "2000 mg\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}

	buf := &bytes.Buffer{}
	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != expected {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), expected)
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   any
		indent bool
	}{
		{
			name:   "simple string",
			data:   "mg",
			indent: false,
		},
		{
			name: "map with indent",
			data: map[string]string{
				"fromUnit": "g",
			},
			indent: true,
		},
		{
			name: "struct",
			data: struct {
				Unit  string  `json:"unit"`
				Value float64 `json:"value"`
			}{
				Unit:  "mg",
				Value: 650,
			},
			indent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var result any
			if err := json.Unmarshal(output, &result); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestJSONFormatterWriter(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	data := map[string]string{"unit": "mg"}
	buf := &bytes.Buffer{}

	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("FormatTo() produced invalid JSON: %v", err)
	}
	if result["unit"] != "mg" {
		t.Errorf("FormatTo() = %v, want %v", result, data)
	}
}

// unitTable is a minimal Tabular fixture.
type unitTable struct {
	rows [][]string
}

func (u *unitTable) TableHeader() []string { return []string{"CODE", "DISPLAY"} }
func (u *unitTable) TableRows() [][]string { return u.rows }

func TestTableFormatter(t *testing.T) {
	formatter := &TableFormatter{}
	data := &unitTable{rows: [][]string{
		{"mg", "milligram"},
		{"{tablet}", "tablet"},
	}}

	output, err := formatter.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want header + 2 rows:\n%s", len(lines), output)
	}
	if !strings.HasPrefix(lines[0], "CODE") {
		t.Errorf("header = %q, want CODE first", lines[0])
	}
	if !strings.Contains(lines[2], "{tablet}") || !strings.Contains(lines[2], "tablet") {
		t.Errorf("row = %q, want the device unit and its display name", lines[2])
	}

	// Columns align: DISPLAY starts at the same offset in every line.
	col := strings.Index(lines[0], "DISPLAY")
	if col < 0 {
		t.Fatalf("header missing DISPLAY column: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1][col:], "milligram") {
		t.Errorf("row 1 not aligned to header columns:\n%s", output)
	}
}

func TestTableFormatterFallsBackToText(t *testing.T) {
	formatter := &TableFormatter{}

	output, err := formatter.Format("not tabular")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(output) != "not tabular\n" {
		t.Errorf("Format() = %q, want plain text fallback", string(output))
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"table", FormatTable, false},
		{"", FormatText, false},
		{"yaml", "", true},
		{"JSON", "", true},
	}

	for _, tt := range tests {
		t.Run("input "+tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{
			name:   "text formatter",
			format: FormatText,
			want:   "*cli.TextFormatter",
		},
		{
			name:   "json formatter",
			format: FormatJSON,
			want:   "*cli.JSONFormatter",
		},
		{
			name:   "table formatter",
			format: FormatTable,
			want:   "*cli.TableFormatter",
		},
		{
			name:   "default to text",
			format: "unknown",
			want:   "*cli.TextFormatter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format)
			got := fmt.Sprintf("%T", formatter)
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
