// Package store persists the modem event journal in SQLite (WAL mode).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"i4.energy/across/gsm_ppp/gsm"
)

// Store wraps *sql.DB with journal helpers.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the SQLite file at path with WAL journal mode.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	// SQLite WAL allows concurrent readers but a single writer.
	db.SetMaxOpenConns(1)
	return &Store{db: db, log: log}, nil
}

// Migrate applies the journal schema. It is idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(ddlEvents); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const ddlEvents = `
CREATE TABLE IF NOT EXISTS events (
    id     TEXT    NOT NULL PRIMARY KEY,
    kind   TEXT    NOT NULL,
    detail TEXT    NOT NULL DEFAULT '',
    at     INTEGER NOT NULL           -- Unix milliseconds
);
CREATE INDEX IF NOT EXISTS idx_events_at ON events (at DESC);
`

// Record is one journal row.
type Record struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// InsertEvent journals one session event.
func (s *Store) InsertEvent(ctx context.Context, e gsm.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, kind, detail, at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), string(e.Kind), e.Detail, e.Time.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, detail, at FROM events ORDER BY at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ms int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Detail, &ms); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		r.At = time.UnixMilli(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
