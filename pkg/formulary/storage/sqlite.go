package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"meridianrx/galen/pkg/formulary"
)

// SchemaVersion is the current formulary database schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS medications (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	form TEXT,
	document TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_medications_name ON medications(name);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
);
`

// SQLiteStore implements formulary.Store using SQLite for persistence.
// It provides durable storage for single-instance deployments where
// the formulary must survive restarts.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent
// performance and periodic checkpointing to balance write performance
// with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	putStmt    *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite formulary store with default
// settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite store with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)",
		SchemaVersion, time.Now(),
	)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO medications (id, name, form, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			form = excluded.form,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT document FROM medications WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM medications WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT document FROM medications ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Put persists a medication, replacing any entry with the same ID.
func (s *SQLiteStore) Put(ctx context.Context, med *formulary.Medication) error {
	if err := med.Validate(); err != nil {
		return err
	}

	stored := *med
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	document, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal medication %q: %w", stored.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.putStmt.ExecContext(ctx,
		stored.ID, stored.Name, stored.Form, string(document), stored.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to put medication %q: %w", stored.ID, err)
	}
	return nil
}

// Get retrieves a medication by ID. Returns nil if no entry exists.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*formulary.Medication, error) {
	if id == "" {
		return nil, fmt.Errorf("medication id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var document string
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication %q: %w", id, err)
	}

	var med formulary.Medication
	if err := json.Unmarshal([]byte(document), &med); err != nil {
		return nil, fmt.Errorf("failed to unmarshal medication %q: %w", id, err)
	}
	return &med, nil
}

// Delete removes a medication by ID. No-op if the entry doesn't exist.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("medication id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete medication %q: %w", id, err)
	}
	return nil
}

// List returns every medication, sorted by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]*formulary.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	defer rows.Close()

	var meds []*formulary.Medication
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var med formulary.Medication
		if err := json.Unmarshal([]byte(document), &med); err != nil {
			return nil, fmt.Errorf("failed to unmarshal medication: %w", err)
		}
		meds = append(meds, &med)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return meds, nil
}

// Close releases any resources held by the store. Close is idempotent
// and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.putStmt, s.getStmt, s.deleteStmt, s.listStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints until Close.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
