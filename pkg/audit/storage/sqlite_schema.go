package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
-- Conversion records table
CREATE TABLE IF NOT EXISTS conversions (
    id TEXT PRIMARY KEY,
    request_id TEXT,

    -- Timestamps
    request_time TIMESTAMP NOT NULL,
    recorded_time TIMESTAMP NOT NULL,

    -- Request echo
    value REAL NOT NULL,
    from_unit TEXT NOT NULL,
    to_unit TEXT NOT NULL,
    medication TEXT,
    lot_number TEXT,
    context_hash TEXT,
    patient_ref TEXT,

    -- Outcome
    outcome TEXT NOT NULL,
    result_value REAL,
    path TEXT,
    steps TEXT,
    confidence REAL,
    confidence_level TEXT,

    -- Guardrails
    guardrail_decision TEXT,
    findings TEXT,

    -- Error info
    error TEXT,
    error_kind TEXT,

    -- Timing
    duration INTEGER
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_conversions_request_time ON conversions(request_time);
CREATE INDEX IF NOT EXISTS idx_conversions_outcome ON conversions(outcome);
CREATE INDEX IF NOT EXISTS idx_conversions_from_unit ON conversions(from_unit);
CREATE INDEX IF NOT EXISTS idx_conversions_to_unit ON conversions(to_unit);
CREATE INDEX IF NOT EXISTS idx_conversions_medication ON conversions(medication);
CREATE INDEX IF NOT EXISTS idx_conversions_guardrail_decision ON conversions(guardrail_decision);
CREATE INDEX IF NOT EXISTS idx_conversions_confidence ON conversions(confidence);
CREATE INDEX IF NOT EXISTS idx_conversions_request_id ON conversions(request_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
