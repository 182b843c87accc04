// Package db provides SQLite database management for the import history.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Import history table
-- Tracks which statement records have been written to the ledger
CREATE TABLE IF NOT EXISTS import_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    meta_key TEXT NOT NULL,            -- metadata key holding the identity, e.g. 'import_id'
    identity_key TEXT NOT NULL,        -- reference, row hash or synthesized key
    format TEXT NOT NULL,              -- statement format, e.g. 'ib'
    source_file TEXT NOT NULL,         -- statement file name
    entry_date TEXT NOT NULL,          -- YYYY-MM-DD
    ledger_file TEXT NOT NULL,         -- monthly ledger file the entry was appended to
    batch_id TEXT NOT NULL,            -- import batch
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(meta_key, identity_key)
);

CREATE INDEX IF NOT EXISTS idx_import_history_key
    ON import_history(identity_key);

CREATE INDEX IF NOT EXISTS idx_import_history_batch
    ON import_history(batch_id);

-- Import metadata table
-- Stores key-value metadata about import runs
CREATE TABLE IF NOT EXISTS import_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
