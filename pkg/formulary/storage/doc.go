// Package storage provides formulary persistence backends.
//
// MemoryStore keeps medications in process memory and is the default;
// SQLiteStore persists them durably in a single-file database with WAL
// journaling. Both implement formulary.Store and are safe for
// concurrent use.
package storage
