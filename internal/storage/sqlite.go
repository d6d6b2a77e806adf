package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tansaku/internal/models"
)

// maxQueryParams keeps IN lists under SQLite's bound-parameter limit.
const maxQueryParams = 500

// SQLiteDocStore keeps the snapshot in a SQLite database. Replace runs in one
// transaction, so readers see either the old or the new catalog.
type SQLiteDocStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteDocStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteDocStore(dbPath string) (*SQLiteDocStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteDocStore{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		fields TEXT NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_position ON records(position);

	CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		records INTEGER NOT NULL,
		replaced_at TIMESTAMP NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Exists reports whether a snapshot was ever written.
func (s *SQLiteDocStore) Exists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query snapshot: %w", err)
	}
	return n > 0, nil
}

// Replace deletes every record and inserts records in a transaction.
func (s *SQLiteDocStore) Replace(ctx context.Context, records []*models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, position, fields, text) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		fieldsJSON, err := json.Marshal(r.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, i, string(fieldsJSON), r.Text); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot (id, records, replaced_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET records = excluded.records, replaced_at = excluded.replaced_at`,
		len(records), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}
	return tx.Commit()
}

// Get returns a record by ID.
func (s *SQLiteDocStore) Get(ctx context.Context, id string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, fields, text FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// GetMany returns the records found among ids.
func (s *SQLiteDocStore) GetMany(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	out := make(map[string]*models.Record, len(ids))
	for start := 0; start < len(ids); start += maxQueryParams {
		end := start + maxQueryParams
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := `SELECT id, fields, text FROM records WHERE id IN (?` +
			strings.Repeat(", ?", len(batch)-1) + `)`
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[r.ID] = r
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// List returns records in catalog order with offset and limit.
func (s *SQLiteDocStore) List(ctx context.Context, offset, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields, text FROM records ORDER BY position LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the total number of records.
func (s *SQLiteDocStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// Paths returns the database file.
func (s *SQLiteDocStore) Paths() []string {
	return []string{s.path}
}

// Close closes the database connection.
func (s *SQLiteDocStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.Record, error) {
	var r models.Record
	var fieldsJSON string
	if err := sc.Scan(&r.ID, &fieldsJSON, &r.Text); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &r, nil
}
