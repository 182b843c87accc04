package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
)

// ImportRecord represents an import history record.
type ImportRecord struct {
	ID          int64
	MetaKey     string
	IdentityKey string
	Format      string
	SourceFile  string
	EntryDate   string
	LedgerFile  string
	BatchID     string
	ImportedAt  time.Time
}

// ImportHistory manages import history operations.
type ImportHistory struct {
	conn *Connection
}

// NewImportHistory creates a new ImportHistory instance.
func NewImportHistory(conn *Connection) *ImportHistory {
	return &ImportHistory{conn: conn}
}

const upsertImport = `
	INSERT INTO import_history (meta_key, identity_key, format, source_file, entry_date, ledger_file, batch_id)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(meta_key, identity_key) DO UPDATE SET
		format = excluded.format,
		source_file = excluded.source_file,
		entry_date = excluded.entry_date,
		ledger_file = excluded.ledger_file,
		batch_id = excluded.batch_id,
		imported_at = CURRENT_TIMESTAMP
`

// RecordImports records the entries of a batch in one transaction.
// A record that already exists (same meta_key + identity_key) is updated.
func (h *ImportHistory) RecordImports(records []ImportRecord) error {
	return h.conn.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(upsertImport)
		if err != nil {
			return fmt.Errorf("failed to prepare import insert: %w", err)
		}
		defer stmt.Close()

		for _, record := range records {
			if _, err := stmt.Exec(
				record.MetaKey,
				record.IdentityKey,
				record.Format,
				record.SourceFile,
				record.EntryDate,
				record.LedgerFile,
				record.BatchID,
			); err != nil {
				return fmt.Errorf("failed to record import %s: %w", record.IdentityKey, err)
			}
		}
		return nil
	})
}

// FindImports retrieves the import records of an identity key under every metadata key.
func (h *ImportHistory) FindImports(identityKey string) ([]ImportRecord, error) {
	query := `
		SELECT id, meta_key, identity_key, format, source_file, entry_date, ledger_file, batch_id, imported_at
		FROM import_history
		WHERE identity_key = ?
		ORDER BY meta_key
	`

	rows, err := h.conn.Query(query, identityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find import records: %w", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		var record ImportRecord
		if err := rows.Scan(
			&record.ID,
			&record.MetaKey,
			&record.IdentityKey,
			&record.Format,
			&record.SourceFile,
			&record.EntryDate,
			&record.LedgerFile,
			&record.BatchID,
			&record.ImportedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import records: %w", err)
	}

	return records, nil
}

// IdentityKeys retrieves all imported identity keys for a metadata key.
// This is useful for bulk filtering.
func (h *ImportHistory) IdentityKeys(metaKey string) (reconcile.KeySet, error) {
	rows, err := h.conn.Query(`SELECT identity_key FROM import_history WHERE meta_key = ?`, metaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity keys: %w", err)
	}
	defer rows.Close()

	keys := reconcile.NewKeySet()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan identity key: %w", err)
		}
		keys.Add(key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identity keys: %w", err)
	}

	return keys, nil
}

// Forget deletes every import record of an identity key.
// Use case: Force re-import of an entry removed from the ledger.
func (h *ImportHistory) Forget(identityKey string) (int64, error) {
	result, err := h.conn.Exec(`DELETE FROM import_history WHERE identity_key = ?`, identityKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete import record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// Stats represents import statistics.
type Stats struct {
	TotalEntries int
	ByFormat     map[string]int
	Batches      int
	LastImport   sql.NullString
}

// GetStats retrieves import statistics.
func (h *ImportHistory) GetStats() (*Stats, error) {
	stats := Stats{ByFormat: map[string]int{}}

	err := h.conn.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT batch_id) FROM import_history`).Scan(&stats.TotalEntries, &stats.Batches)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry count: %w", err)
	}

	rows, err := h.conn.Query(`SELECT format, COUNT(*) FROM import_history GROUP BY format ORDER BY format`)
	if err != nil {
		return nil, fmt.Errorf("failed to get format counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			format string
			count  int
		)
		if err := rows.Scan(&format, &count); err != nil {
			return nil, fmt.Errorf("failed to scan format count: %w", err)
		}
		stats.ByFormat[format] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read format counts: %w", err)
	}

	// Get last import time
	err = h.conn.QueryRow(`SELECT MAX(imported_at) FROM import_history`).Scan(&stats.LastImport)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last import time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (h *ImportHistory) GetMetadata(key string) (string, error) {
	query := `SELECT value FROM import_metadata WHERE key = ?`

	var value string
	err := h.conn.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *ImportHistory) SetMetadata(key, value string) error {
	query := `
		INSERT INTO import_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := h.conn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
