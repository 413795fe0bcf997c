package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatText is plain text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatTable is aligned column output for list results.
	FormatTable OutputFormat = "table"
)

// ParseFormat validates an --output flag value. An empty value selects
// text.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (expected text, json, or table)", s))
	}
}

// Formatter renders command output.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// Tabular is implemented by result types that can render as a table.
// Row cells are preformatted strings; alignment is the formatter's job.
type Tabular interface {
	TableHeader() []string
	TableRows() [][]string
}

// TextFormatter prints values with the %v verb. Result types that want
// readable text output implement fmt.Stringer.
type TextFormatter struct{}

// Format converts data to text.
func (f *TextFormatter) Format(data any) ([]byte, error) {
	return []byte(fmt.Sprintf("%v\n", data)), nil
}

// FormatTo writes data to w as text.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintf(w, "%v\n", data)
	return err
}

// JSONFormatter renders values with encoding/json.
type JSONFormatter struct {
	Indent bool
}

// Format converts data to JSON.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	if f.Indent {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// FormatTo writes data to w as JSON.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// TableFormatter renders Tabular values in aligned columns. Values
// that are not Tabular fall back to text, so commands can pass any
// result through one formatter.
type TableFormatter struct{}

// Format converts data to an aligned table.
func (f *TableFormatter) Format(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatTo writes data to w as an aligned table.
func (f *TableFormatter) FormatTo(w io.Writer, data any) error {
	tab, ok := data.(Tabular)
	if !ok {
		return (&TextFormatter{}).FormatTo(w, data)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if header := tab.TableHeader(); len(header) > 0 {
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}
	for _, row := range tab.TableRows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// NewFormatter creates a formatter for the given format. Unknown
// formats fall back to text; flag values go through ParseFormat first.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatTable:
		return &TableFormatter{}
	default:
		return &TextFormatter{}
	}
}
