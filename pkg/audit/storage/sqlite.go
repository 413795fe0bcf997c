package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meridianrx/galen/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the
	// database. Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	logger     *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	s.logger.Debug("database schema created")

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}

	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)

	// Prepare the insert once; Store reuses it for every record.
	insert := `
		INSERT INTO conversions (
			id, request_id,
			request_time, recorded_time,
			value, from_unit, to_unit, medication, lot_number, context_hash, patient_ref,
			outcome, result_value, path, steps, confidence, confidence_level,
			guardrail_decision, findings,
			error, error_kind,
			duration
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`
	stmt, err := s.db.Prepare(insert)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store persists a conversion record to the database.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.ConversionRecord) error {
	steps, _ := json.Marshal(record.Steps)
	findings, _ := json.Marshal(record.Findings)

	// Convert empty strings to NULL for the error fields so success
	// queries can rely on IS NULL.
	var errorVal, errorKindVal interface{}
	if record.Error != "" {
		errorVal = record.Error
	}
	if record.ErrorKind != "" {
		errorKindVal = record.ErrorKind
	}

	_, err := s.insertStmt.ExecContext(ctx,
		record.ID, record.RequestID,
		record.RequestTime, record.RecordedTime,
		record.Value, record.FromUnit, record.ToUnit, record.Medication, record.LotNumber, record.ContextHash, record.PatientRef,
		record.Outcome, record.ResultValue, record.Path, string(steps), record.Confidence, record.ConfidenceLevel,
		record.GuardrailDecision, string(findings),
		errorVal, errorKindVal,
		record.Duration.Milliseconds(),
	)

	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query retrieves conversion records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.ConversionRecord, error) {
	sqlQuery, args := s.buildSelect("SELECT * FROM conversions", query, true)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.ConversionRecord{}
	for rows.Next() {
		record, err := s.scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream returns a channel of conversion records for
// memory-efficient streaming. Use this for large result sets to avoid
// loading everything in memory. The channels are closed when the query
// completes or errors.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.ConversionRecord, <-chan error, error) {
	recordsCh := make(chan *audit.ConversionRecord, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect("SELECT * FROM conversions", query, true)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			record, err := s.scanRow(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of conversion records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	sqlQuery, args := s.buildSelect("SELECT COUNT(*) FROM conversions", query, false)

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// Delete removes conversion records matching the query filters.
// Returns the number of records deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	whereClause, args := s.buildWhereClause(query)

	sqlQuery := "DELETE FROM conversions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}

	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}

	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildSelect builds a complete SELECT statement from the base query
// and the filters. Sorting and pagination are appended only when
// paginate is set; COUNT queries skip both.
func (s *SQLiteStorage) buildSelect(base string, query *audit.Query, paginate bool) (string, []interface{}) {
	whereClause, args := s.buildWhereClause(query)

	sqlQuery := base
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	if !paginate {
		return sqlQuery, args
	}

	// Sort column names are whitelisted by the query validator; they
	// are never interpolated from raw user input.
	sortBy := "request_time"
	sortOrder := "DESC"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	if query.SortOrder != "" {
		sortOrder = query.SortOrder
	}
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)

	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without the WHERE keyword) and the query arguments.
func (s *SQLiteStorage) buildWhereClause(query *audit.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "request_time >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		conditions = append(conditions, "request_time <= ?")
		args = append(args, *query.EndTime)
	}

	if query.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, query.RequestID)
	}

	if query.FromUnit != "" {
		conditions = append(conditions, "from_unit = ?")
		args = append(args, query.FromUnit)
	}
	if query.ToUnit != "" {
		conditions = append(conditions, "to_unit = ?")
		args = append(args, query.ToUnit)
	}
	if query.Medication != "" {
		conditions = append(conditions, "medication = ?")
		args = append(args, query.Medication)
	}
	if query.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, query.Path)
	}

	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, query.Outcome)
	}
	if query.ErrorKind != "" {
		conditions = append(conditions, "error_kind = ?")
		args = append(args, query.ErrorKind)
	}

	if query.GuardrailDecision != "" {
		conditions = append(conditions, "guardrail_decision = ?")
		args = append(args, query.GuardrailDecision)
	}
	if query.Rule != "" {
		conditions = append(conditions, "findings LIKE ?")
		args = append(args, "%"+query.Rule+"%")
	}

	if query.MinConfidence != nil {
		conditions = append(conditions, "confidence >= ?")
		args = append(args, *query.MinConfidence)
	}
	if query.MaxConfidence != nil {
		conditions = append(conditions, "confidence <= ?")
		args = append(args, *query.MaxConfidence)
	}

	whereClause := ""
	for i, condition := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += condition
	}

	return whereClause, args
}

// scanRow scans a database row into a ConversionRecord.
func (s *SQLiteStorage) scanRow(row *sql.Rows) (*audit.ConversionRecord, error) {
	var record audit.ConversionRecord
	var steps, findings string
	var durationMs int64
	var errorVal, errorKindVal sql.NullString

	err := row.Scan(
		&record.ID, &record.RequestID,
		&record.RequestTime, &record.RecordedTime,
		&record.Value, &record.FromUnit, &record.ToUnit, &record.Medication, &record.LotNumber, &record.ContextHash, &record.PatientRef,
		&record.Outcome, &record.ResultValue, &record.Path, &steps, &record.Confidence, &record.ConfidenceLevel,
		&record.GuardrailDecision, &findings,
		&errorVal, &errorKindVal,
		&durationMs,
	)
	if err != nil {
		return nil, err
	}

	if errorVal.Valid {
		record.Error = errorVal.String
	}
	if errorKindVal.Valid {
		record.ErrorKind = errorKindVal.String
	}

	if steps != "" {
		json.Unmarshal([]byte(steps), &record.Steps)
	}
	if findings != "" {
		json.Unmarshal([]byte(findings), &record.Findings)
	}

	record.Duration = time.Duration(durationMs) * time.Millisecond

	return &record, nil
}
