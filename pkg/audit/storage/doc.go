// Package storage provides storage backends for conversion audit
// records.
//
// Two implementations of the audit.Storage interface are included:
//
//   - SQLite: embedded durable storage for single-node deployments
//   - Memory: in-memory storage for tests and ephemeral use
//
// # SQLite backend
//
// The SQLite backend stores records in a single conversions table with
// indexes on the fields queries filter by. It runs in WAL mode by
// default so reads never block the recorder's writes, keeps the insert
// statement prepared across calls, and tracks its schema version in a
// schema_version table for future migrations.
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:        "data/audit.db",
//	    WALMode:     true,
//	    BusyTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Step lists and guardrail findings are stored as JSON columns; the
// duration is stored in milliseconds.
//
// # Thread safety
//
// Both backends are safe for concurrent use. Store can be called
// concurrently with Query; WAL mode gives the SQLite backend
// concurrent readers and a single writer without blocking.
package storage
