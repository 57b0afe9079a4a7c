// Package spool stores undelivered line protocol payloads in SQLite so they
// survive restarts and can be replayed once a sink recovers.
//
// Each entry belongs to one sink and keeps the precision its payload was
// rendered in, so a replay sends exactly the bytes the sink would have
// received originally.
package spool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
)

// Entry is one spooled payload.
type Entry struct {
	ID        string
	Sink      string
	Precision lineprotocol.Precision
	Payload   []byte
	Points    int
	CreatedAt time.Time
	Attempts  int
	LastError string
}

// Store defines spool persistence. The pipeline depends on this interface.
type Store interface {
	Enqueue(ctx context.Context, sink string, precision lineprotocol.Precision, payload []byte, points int) (string, error)
	Pending(ctx context.Context, sink string, limit int) ([]Entry, error)
	Ack(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, cause error) (dropped bool, err error)
	Count(ctx context.Context) (map[string]int, error)
}

// SQLiteStore implements Store on the spool_entries table.
type SQLiteStore struct {
	db          *sql.DB
	maxAttempts int
	now         func() time.Time
}

// NewSQLiteStore creates a store on a migrated database. maxAttempts of 0
// keeps failing entries forever.
func NewSQLiteStore(db *sql.DB, maxAttempts int) *SQLiteStore {
	return &SQLiteStore{db: db, maxAttempts: maxAttempts, now: time.Now}
}

// Enqueue saves a payload for sink and returns its generated ID.
func (s *SQLiteStore) Enqueue(ctx context.Context, sink string, precision lineprotocol.Precision, payload []byte, points int) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spool_entries (id, sink, precision, payload, points, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sink, precision.String(), payload, points, s.now().UTC().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("spooling payload: %w", err)
	}
	return id, nil
}

// Pending returns up to limit entries for sink, oldest first.
func (s *SQLiteStore) Pending(ctx context.Context, sink string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sink, precision, payload, points, created_at, attempts, last_error
		 FROM spool_entries WHERE sink = ? ORDER BY created_at, rowid LIMIT ?`,
		sink, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing spool: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var precision string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Sink, &precision, &e.Payload, &e.Points,
			&createdAt, &e.Attempts, &e.LastError); err != nil {
			return nil, fmt.Errorf("scanning spool row: %w", err)
		}
		e.Precision, err = lineprotocol.ParsePrecision(precision)
		if err != nil {
			return nil, fmt.Errorf("spool entry %s: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spool: %w", err)
	}
	return entries, nil
}

// Ack removes a delivered entry.
func (s *SQLiteStore) Ack(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM spool_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("acking spool entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite3 always reports rows affected
		return ErrNotFound
	}
	return nil
}

// MarkAttempt records a failed replay. Once the entry reaches maxAttempts it
// is deleted and dropped reports true.
func (s *SQLiteStore) MarkAttempt(ctx context.Context, id string, cause error) (bool, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	var attempts int
	err := s.db.QueryRowContext(ctx,
		`UPDATE spool_entries SET attempts = attempts + 1, last_error = ?
		 WHERE id = ? RETURNING attempts`,
		msg, id,
	).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("marking spool attempt: %w", err)
	}

	if s.maxAttempts > 0 && attempts >= s.maxAttempts {
		if err := s.Ack(ctx, id); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Count returns the number of spooled entries per sink.
func (s *SQLiteStore) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT sink, COUNT(*) FROM spool_entries GROUP BY sink")
	if err != nil {
		return nil, fmt.Errorf("counting spool: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var sink string
		var n int
		if err := rows.Scan(&sink, &n); err != nil {
			return nil, fmt.Errorf("scanning spool count: %w", err)
		}
		counts[sink] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spool counts: %w", err)
	}
	return counts, nil
}
