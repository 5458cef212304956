package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema is the single table used by the SQLite gateway.
const Schema = `
CREATE TABLE IF NOT EXISTS collections (
	key        TEXT PRIMARY KEY,
	records    TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// SQLite keeps each collection in one row of a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT records FROM collections WHERE key = ?`, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("invalid records for %s: %w", collection, err)
	}
	return records, nil
}

func (s *SQLite) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("invalid records for %s: %w", collection, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (key, records, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET records = excluded.records, updated_at = excluded.updated_at`,
		collection, string(raw), time.Now().UTC(),
	)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
