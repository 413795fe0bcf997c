package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"meridianrx/galen/pkg/audit"
)

// CSVExporter exports conversion records to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes conversion records to the provided writer in CSV
// format. Nested structures (steps, findings) are flattened to JSON
// strings.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.ConversionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(e.recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	return nil
}

// ExportStream exports conversion records from a channel to CSV
// format. The writer flushes periodically so long exports make
// visible progress.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.ConversionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.getHeaderRow()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				// Channel closed - flush and return
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(e.recordToRow(record)); err != nil {
				return audit.NewExportError("csv", recordCount, err)
			}

			recordCount++

			// Flush every 100 records
			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

// getHeaderRow returns the CSV header row.
func (e *CSVExporter) getHeaderRow() []string {
	return []string{
		"id", "request_id",
		"request_time", "recorded_time",
		"value", "from_unit", "to_unit", "medication", "lot_number", "context_hash", "patient_ref",
		"outcome", "result_value", "path", "steps", "confidence", "confidence_level",
		"guardrail_decision", "findings",
		"error", "error_kind",
		"duration_ms",
	}
}

// recordToRow converts a conversion record to a CSV row.
func (e *CSVExporter) recordToRow(record *audit.ConversionRecord) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	formatJSON := func(v interface{}) string {
		data, _ := json.Marshal(v)
		return string(data)
	}

	// Dose values round-trip exactly; confidence is a display score.
	formatValue := func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	return []string{
		record.ID,
		record.RequestID,
		formatTime(record.RequestTime),
		formatTime(record.RecordedTime),
		formatValue(record.Value),
		record.FromUnit,
		record.ToUnit,
		record.Medication,
		record.LotNumber,
		record.ContextHash,
		record.PatientRef,
		record.Outcome,
		formatValue(record.ResultValue),
		record.Path,
		formatJSON(record.Steps),
		fmt.Sprintf("%.4f", record.Confidence),
		record.ConfidenceLevel,
		record.GuardrailDecision,
		formatJSON(record.Findings),
		record.Error,
		record.ErrorKind,
		fmt.Sprintf("%d", record.Duration.Milliseconds()),
	}
}
