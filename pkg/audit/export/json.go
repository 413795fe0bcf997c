package export

import (
	"context"
	"encoding/json"
	"io"

	"meridianrx/galen/pkg/audit"
)

// JSONExporter exports conversion records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes conversion records to the provided writer in JSON
// format. A single record is exported as a JSON object, multiple
// records as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, records []*audit.ConversionRecord, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error

	if len(records) == 1 {
		if e.Pretty {
			data, err = json.MarshalIndent(records[0], "", "  ")
		} else {
			data, err = json.Marshal(records[0])
		}
	} else {
		if e.Pretty {
			data, err = json.MarshalIndent(records, "", "  ")
		} else {
			data, err = json.Marshal(records)
		}
	}

	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	return nil
}

// ExportStream exports conversion records from a channel to JSON
// format. Records are written one at a time as they arrive, making
// this suitable for very large exports.
//
// The output is a JSON array regardless of record count.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.ConversionRecord, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return audit.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				// Channel closed - write closing bracket and return
				if _, err := w.Write([]byte("]")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return audit.NewExportError("json", recordCount, err)
					}
				}
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return audit.NewExportError("json", recordCount, err)
			}

			if _, err := w.Write(data); err != nil {
				return audit.NewExportError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

// serializeRecord serializes a single conversion record to JSON.
func (e *JSONExporter) serializeRecord(record *audit.ConversionRecord) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
