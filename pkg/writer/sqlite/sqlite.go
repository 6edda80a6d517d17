// Package sqlite implements a Store backed by a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/momoledger/smsledger/pkg/api"
)

const schema = `CREATE TABLE IF NOT EXISTS sms_records (
	position       INTEGER PRIMARY KEY,
	transaction_id TEXT,
	payload        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sms_records_transaction_id ON sms_records(transaction_id);`

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file. ":memory:" opens an in-memory database.
	Path string
}

// Store keeps each record as a JSON payload row, ordered by position.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at cfg.Path and ensures the schema exists.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Debug("sqlite store initialized", "path", cfg.Path)
	return &Store{db: db, logger: logger}, nil
}

// LoadAll returns every record in position order.
func (s *Store) LoadAll(ctx context.Context) ([]api.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM sms_records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []api.Record{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec api.Record
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decoding record payload: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// SaveAll replaces every row with records in a single transaction.
func (s *Store) SaveAll(ctx context.Context, records []api.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sms_records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sms_records (position, transaction_id, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		var txID sql.NullString
		if id := rec.TransactionID(); id != "" {
			txID = sql.NullString{String: id, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, txID, string(payload)); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("wrote records to sqlite", "total_count", len(records))
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
