// SPDX-License-Identifier: MIT

// Package history persists thermostat events and user overrides.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homanchou/heatercontrol/internal/persistence/sqlite"
)

// Kind classifies an event.
type Kind string

const (
	KindReading     Kind = "reading"
	KindSwitch      Kind = "switch"
	KindSensorError Kind = "sensor_error"
	KindOverride    Kind = "override"
)

// Event is one row of the history log.
type Event struct {
	ID      int64     `json:"id"`
	At      time.Time `json:"at"`
	Kind    Kind      `json:"kind"`
	Temp    float64   `json:"temp"`
	MinTemp float64   `json:"min_temp"`
	MaxTemp float64   `json:"max_temp"`
	Command string    `json:"command,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Overrides is the user-controlled part of the thermostat state.
type Overrides struct {
	MinTemp   float64    `json:"min_temp"`
	MaxTemp   float64    `json:"max_temp"`
	Disabled  bool       `json:"disabled"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// DefaultRecentLimit caps Recent when the caller passes no limit.
const DefaultRecentLimit = 100

// MaxRecentLimit caps Recent regardless of the requested limit.
const MaxRecentLimit = 1000

// Store provides SQLite persistence for thermostat history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		kind TEXT NOT NULL CHECK(kind IN ('reading', 'switch', 'sensor_error', 'override')),
		temp REAL NOT NULL DEFAULT 0,
		min_temp REAL NOT NULL DEFAULT 0,
		max_temp REAL NOT NULL DEFAULT 0,
		command TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);

	CREATE TABLE IF NOT EXISTS overrides (
		id INTEGER PRIMARY KEY CHECK(id = 1),
		min_temp REAL NOT NULL,
		max_temp REAL NOT NULL,
		disabled INTEGER NOT NULL DEFAULT 0,
		expires_at TEXT
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Record appends an event. A zero At is replaced by the current time.
// Times are stored as unix nanoseconds so SQL comparisons follow time order.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	query := `
	INSERT INTO events (at, kind, temp, min_temp, max_temp, command, detail)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.At.UnixNano(), string(e.Kind), e.Temp, e.MinTemp, e.MaxTemp, e.Command, e.Detail)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	query := `
	SELECT id, at, kind, temp, min_temp, max_temp, command, detail
	FROM events
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var (
			at   int64
			kind string
		)
		if err := rows.Scan(&e.ID, &at, &kind, &e.Temp, &e.MinTemp, &e.MaxTemp, &e.Command, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = Kind(kind)
		e.At = time.Unix(0, at).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune deletes events recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// SaveOverrides replaces the stored overrides.
func (s *Store) SaveOverrides(ctx context.Context, o Overrides) error {
	var expires sql.NullString
	if o.ExpiresAt != nil {
		expires = sql.NullString{String: o.ExpiresAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	query := `
	INSERT INTO overrides (id, min_temp, max_temp, disabled, expires_at)
	VALUES (1, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		min_temp = excluded.min_temp,
		max_temp = excluded.max_temp,
		disabled = excluded.disabled,
		expires_at = excluded.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, o.MinTemp, o.MaxTemp, o.Disabled, expires); err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	return nil
}

// LoadOverrides returns the stored overrides. ok is false when none were saved.
func (s *Store) LoadOverrides(ctx context.Context) (o Overrides, ok bool, err error) {
	var expires sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT min_temp, max_temp, disabled, expires_at FROM overrides WHERE id = 1`)
	if err := row.Scan(&o.MinTemp, &o.MaxTemp, &o.Disabled, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Overrides{}, false, nil
		}
		return Overrides{}, false, fmt.Errorf("load overrides: %w", err)
	}
	if expires.Valid {
		t, err := time.Parse(time.RFC3339Nano, expires.String)
		if err != nil {
			return Overrides{}, false, fmt.Errorf("parse override expiry %q: %w", expires.String, err)
		}
		o.ExpiresAt = &t
	}
	return o, true, nil
}
