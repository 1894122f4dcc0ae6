// Package audit keeps a privacy-conscious log of relay attempts. Only metadata
// is stored: the visitor's name, email and message never touch the database.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes of a relay attempt.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Attempt is one contact request as seen by the relay endpoint.
type Attempt struct {
	ID         int64     `json:"id"`
	HashedIP   string    `json:"hashed_ip"`
	Outcome    string    `json:"outcome"`
	Field      string    `json:"field,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type Stats struct {
	Total          int64 `json:"total"`
	Delivered      int64 `json:"delivered"`
	Rejected       int64 `json:"rejected"`
	Failed         int64 `json:"failed"`
	UniqueSenders  int64 `json:"unique_senders"`
	AttemptsToday  int64 `json:"attempts_today"`
	AttemptsWeek   int64 `json:"attempts_this_week"`
	AvgRelayMillis int64 `json:"avg_relay_ms"`
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS relay_attempts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	hashed_ip TEXT NOT NULL,
	outcome TEXT NOT NULL,
	field TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relay_attempts_created_at ON relay_attempts(created_at);`

// Open opens (or creates) the sqlite database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	// times are written in UTC as "2006-01-02 15:04:05.999999999-07:00"; trailing
	// fraction zeros are trimmed, which still sorts correctly as text
	db, err := sql.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// sqlite serializes writers anyway, and :memory: is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create relay_attempts table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a. A zero CreatedAt is replaced by the current time.
func (s *Store) Record(ctx context.Context, a Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_attempts (hashed_ip, outcome, field, status_code, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.HashedIP, a.Outcome, a.Field, a.StatusCode, a.DurationMS, a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record relay attempt: %w", err)
	}
	return nil
}

// Stats summarizes every stored attempt relative to now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC()
	weekAgo := now.Add(-7 * 24 * time.Hour).UTC()

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT hashed_ip),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM relay_attempts
	`, OutcomeDelivered, OutcomeRejected, OutcomeFailed, startOfDay, weekAgo).Scan(
		&stats.Total, &stats.Delivered, &stats.Rejected, &stats.Failed,
		&stats.UniqueSenders, &stats.AttemptsToday, &stats.AttemptsWeek,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt counts: %w", err)
	}

	// rejected attempts never reach the webhook
	err = s.db.QueryRowContext(ctx, `
		SELECT CAST(COALESCE(AVG(duration_ms), 0) AS INTEGER)
		FROM relay_attempts WHERE outcome != ?
	`, OutcomeRejected).Scan(&stats.AvgRelayMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to load relay latency: %w", err)
	}

	return stats, nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, outcome, field, status_code, duration_ms, created_at
		FROM relay_attempts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query relay attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.HashedIP, &a.Outcome, &a.Field, &a.StatusCode, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relay attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Cleanup deletes attempts older than cutoff and returns how many were removed.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM relay_attempts WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up relay attempts: %w", err)
	}
	return result.RowsAffected()
}

// HashIP hashes ip with salt so visitors can be counted but not identified.
func HashIP(salt, ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}
