// Package sqlite persists projected public events so a stream can be
// replayed after the live SSE connection has ended.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
	"github.com/tailfin-ai/tailfin/internal/core/ports"
)

// Store is a SQLite implementation of EventJournal.
type Store struct {
	db *sqlx.DB
}

var _ ports.EventJournal = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stream_events (
id TEXT PRIMARY KEY,
stream_id TEXT NOT NULL,
event_id INTEGER NOT NULL,
kind TEXT NOT NULL,
payload TEXT NOT NULL,
created_at TIMESTAMP NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_stream_events_stream_id ON stream_events(stream_id, event_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// AppendStreamEvent journals one projected event. The record ID is assigned
// here when the caller leaves it empty.
func (s *Store) AppendStreamEvent(ctx context.Context, rec domain.StreamEventRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO stream_events (id, stream_id, event_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.StreamID,
		rec.EventID,
		string(rec.Kind),
		string(rec.Payload),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append stream event: %w", err)
	}

	return nil
}

// ListStreamEvents returns all journaled events for a stream in emission order.
func (s *Store) ListStreamEvents(ctx context.Context, streamID string) ([]domain.StreamEventRecord, error) {
	query := `
		SELECT id, stream_id, event_id, kind, payload, created_at
		FROM stream_events
		WHERE stream_id = ?
		ORDER BY event_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stream events: %w", err)
	}
	defer rows.Close()

	var records []domain.StreamEventRecord
	for rows.Next() {
		var rec domain.StreamEventRecord
		var kind, payload string
		if err := rows.Scan(&rec.ID, &rec.StreamID, &rec.EventID, &kind, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stream event: %w", err)
		}
		rec.Kind = domain.EventKind(kind)
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stream events: %w", err)
	}

	if len(records) == 0 {
		return nil, ports.ErrStreamNotFound
	}

	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
