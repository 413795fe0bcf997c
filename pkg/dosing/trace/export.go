package trace

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Format names a trace export format.
type Format string

const (
	// FormatJSON renders the trace as indented JSON.
	FormatJSON Format = "json"

	// FormatDOT renders the trace as a Graphviz digraph.
	FormatDOT Format = "dot"

	// FormatText renders the trace as a human-readable report.
	FormatText Format = "text"
)

// dotColors assigns a fill color per event kind in DOT output.
var dotColors = map[EventKind]string{
	KindOperationStart:   "lightblue",
	KindOperationEnd:     "lightgreen",
	KindValidation:       "lightyellow",
	KindStep:             "beige",
	KindFactorResolution: "khaki",
	KindConfidence:       "plum",
	KindError:            "salmon",
}

const dotDefaultColor = "white"

// Export renders the recorded trace in the requested format.
func (t *Tracer) Export(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return t.exportJSON()
	case FormatDOT:
		return t.exportDOT(), nil
	case FormatText:
		return t.exportText(), nil
	default:
		return "", fmt.Errorf("unknown trace export format %q (expected json, dot, or text)", format)
	}
}

type jsonExport struct {
	Enabled    bool        `json:"enabled"`
	MaxEntries int         `json:"maxEntries"`
	EntryCount int         `json:"entryCount"`
	Evicted    int         `json:"evicted"`
	Entries    []Entry     `json:"entries"`
	Summary    []OpSummary `json:"summary,omitempty"`
}

func (t *Tracer) exportJSON() (string, error) {
	doc := jsonExport{
		Enabled:    t.Enabled(),
		MaxEntries: t.cfg.MaxEntries,
		EntryCount: len(t.entries),
		Evicted:    t.Evicted(),
		Entries:    t.Entries(),
		Summary:    t.Summary(),
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding trace: %w", err)
	}
	return string(raw), nil
}

func (t *Tracer) exportDOT() string {
	var b strings.Builder
	b.WriteString("digraph ConversionTrace {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n\n")

	entries := t.Entries()
	for i, e := range entries {
		color, ok := dotColors[e.Kind]
		if !ok {
			color = dotDefaultColor
		}
		label := fmt.Sprintf("%s\\n%s\\n+%s", e.Kind, dotEscape(e.Name), formatMillis(e.Offset))
		if e.Duration != nil {
			label += fmt.Sprintf("\\n(%s)", formatMillis(*e.Duration))
		}
		fmt.Fprintf(&b, "  n%d [label=\"%s\", fillcolor=\"%s\"];\n", i, label, color)
	}
	b.WriteString("\n")
	for i := 1; i < len(entries); i++ {
		delta := entries[i].Offset - entries[i-1].Offset
		fmt.Fprintf(&b, "  n%d -> n%d [label=\"+%s\"];\n", i-1, i, formatMillis(delta))
	}
	b.WriteString("}\n")
	return b.String()
}

func (t *Tracer) exportText() string {
	var b strings.Builder
	b.WriteString("=== Conversion Trace ===\n")

	depth := 0
	for _, e := range t.Entries() {
		if e.Kind == KindOperationEnd && depth > 0 {
			depth--
		}
		indent := strings.Repeat("  ", depth)

		line := fmt.Sprintf("[+%s] %s%s", formatMillis(e.Offset), indent, describeEntry(e))
		if fields := formatFields(e.Fields); fields != "" {
			line += " " + fields
		}
		b.WriteString(line + "\n")

		if e.Kind == KindOperationStart {
			depth++
		}
	}
	if t.Evicted() > 0 {
		fmt.Fprintf(&b, "(%d earlier entries evicted)\n", t.Evicted())
	}

	b.WriteString("\n=== Performance Summary ===\n")
	summary := t.Summary()
	if len(summary) == 0 {
		b.WriteString("no completed operations\n")
		return b.String()
	}
	for _, s := range summary {
		fmt.Fprintf(&b, "%s: count=%d total=%s avg=%s min=%s max=%s",
			s.Name, s.Count, formatMillis(s.Total), formatMillis(s.Avg),
			formatMillis(s.Min), formatMillis(s.Max))
		if s.Bottleneck {
			b.WriteString(" [bottleneck]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeEntry(e Entry) string {
	switch e.Kind {
	case KindOperationStart:
		return fmt.Sprintf("> %s started", e.Name)
	case KindOperationEnd:
		if e.Duration != nil {
			return fmt.Sprintf("< %s completed in %s", e.Name, formatMillis(*e.Duration))
		}
		return fmt.Sprintf("< %s completed", e.Name)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("%s: %s", e.Name, e.Detail)
		}
		return string(e.Kind) + ": " + e.Name
	}
}

// formatFields renders structured fields as sorted k=v pairs.
func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "(" + strings.Join(pairs, " ") + ")"
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
