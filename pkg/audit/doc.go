// Package audit provides recording, storage, and retrieval of conversion
// audit records. Every conversion the engine performs can be captured as
// an immutable ConversionRecord for compliance review and forensics:
// what was asked, what came back, the step-by-step derivation, the
// confidence score, and the guardrail verdict.
//
// # Architecture
//
// The audit system consists of three layers:
//
//  1. Recorder - builds records from conversion results (async)
//  2. Storage backend - persists records (SQLite or in-memory)
//  3. Query layer - retrieves, filters, and exports records
//
// # Recording flow
//
// Records are written asynchronously so conversion latency never waits
// on the database:
//
//	Convert → Evaluate guardrails → Record (enqueue, non-blocking)
//	                                   ↓
//	                            background worker
//	                                   ↓
//	                            storage backend (SQLite, WAL mode)
//
// Patient references are redacted (SHA-256) before the record leaves
// the recorder; raw identifiers are never stored.
//
// # Basic usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/audit.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	rec := recorder.NewRecorder(store, nil)
//	defer rec.Close()
//
//	start := time.Now()
//	res, convErr := converter.Convert(500, "mg", "{tablet}", convCtx, nil)
//	rec.Record(ctx, &recorder.Entry{
//	    RequestTime: start,
//	    Value:       500,
//	    FromUnit:    "mg",
//	    ToUnit:      "{tablet}",
//	    Context:     convCtx,
//	    Result:      res,
//	    Err:         convErr,
//	    Duration:    time.Since(start),
//	})
//
// # Querying records
//
//	cutoff := time.Now().Add(-24 * time.Hour)
//	records, err := store.Query(ctx, &audit.Query{
//	    StartTime: &cutoff,
//	    Outcome:   audit.OutcomeBlocked,
//	    Limit:     100,
//	})
//
//	exporter := export.NewJSONExporter(true)
//	exporter.Export(ctx, records, os.Stdout)
//
// # Retention
//
// Old records can be pruned on a schedule, optionally archiving them
// to JSON first:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays: 90,
//	    PruneSchedule: "0 3 * * *",
//	})
//	pruner.Start(ctx)
//	defer pruner.Stop()
//
// # Thread safety
//
// All audit types are safe for concurrent use: the recorder hands
// records to a single worker goroutine over a buffered channel, and
// both storage backends serialize access internally.
package audit
