// Package export provides exporters for conversion audit records.
//
// Two formats are supported:
//
//   - JSON: full-fidelity export, single object or array
//   - CSV: flattened rows with steps and findings as JSON strings
//
// Both exporters offer a slice-based Export and a channel-based
// ExportStream; pair the latter with Storage.QueryStream to export
// large result sets without holding them in memory:
//
//	recordsCh, errCh, err := store.QueryStream(ctx, query)
//	if err != nil {
//	    return err
//	}
//	if err := export.NewJSONExporter(false).ExportStream(ctx, recordsCh, w); err != nil {
//	    return err
//	}
//	if err := <-errCh; err != nil {
//	    return err
//	}
package export
