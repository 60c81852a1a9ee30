// Package store keeps local client state in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"careerprep/internal/domain"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements domain.KeyValueStore, domain.UserStore and
// domain.TranscriptStore on one database file.
type SQLiteStore struct {
	db         *sql.DB
	passphrase string
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithPassphrase encrypts the stored user record.
func WithPassphrase(p string) Option {
	return func(s *SQLiteStore) { s.passphrase = p }
}

// Open opens (or creates) the database at dbPath and runs the schema migration.
func Open(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %w", domain.ErrStore, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %w", domain.ErrStore, err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set WAL mode: %w", domain.ErrStore, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set busy timeout: %w", domain.ErrStore, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %w", domain.ErrStore, err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS transcripts (
			session_id TEXT PRIMARY KEY,
			target     TEXT NOT NULL,
			kind       TEXT NOT NULL,
			text       TEXT NOT NULL,
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			ended_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transcripts_ended ON transcripts(ended_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get implements domain.KeyValueStore.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %q: %w", domain.ErrStore, key, err)
	}
	return v, true, nil
}

// Set implements domain.KeyValueStore.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: set %q: %w", domain.ErrStore, key, err)
	}
	return nil
}

// Delete implements domain.KeyValueStore. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: delete %q: %w", domain.ErrStore, key, err)
	}
	return nil
}

// SaveTranscript implements domain.TranscriptStore. Saving the same session
// twice keeps the latest version.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, t domain.Transcript) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (session_id, target, kind, text, status, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			text = excluded.text, status = excluded.status,
			error = excluded.error, ended_at = excluded.ended_at`,
		t.SessionID, t.Target, string(t.Kind), t.Text, t.Status, t.Error,
		t.StartedAt.UTC().Format(timeLayout), t.EndedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("%w: save transcript %s: %w", domain.ErrStore, t.SessionID, err)
	}
	return nil
}

// ListTranscripts implements domain.TranscriptStore, newest first.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, limit int) ([]domain.Transcript, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, target, kind, text, status, error, started_at, ended_at
		FROM transcripts ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list transcripts: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Transcript
	for rows.Next() {
		var (
			t                  domain.Transcript
			kind               string
			startedAt, endedAt string
		)
		if err := rows.Scan(&t.SessionID, &t.Target, &kind, &t.Text, &t.Status, &t.Error, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("%w: scan transcript: %w", domain.ErrStore, err)
		}
		t.Kind = domain.StreamKind(kind)
		t.StartedAt, _ = time.Parse(timeLayout, startedAt)
		t.EndedAt, _ = time.Parse(timeLayout, endedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Compile-time interface checks.
var (
	_ domain.KeyValueStore   = (*SQLiteStore)(nil)
	_ domain.UserStore       = (*SQLiteStore)(nil)
	_ domain.TranscriptStore = (*SQLiteStore)(nil)
)
