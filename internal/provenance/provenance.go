// Package provenance keeps an append-only sqlite log of every decision
// the service makes autonomously: scheduler actions, seeding passes,
// and training runs. Nothing reads it at runtime; it exists so a day of
// surprising lamp behavior can be reconstructed after the fact.
package provenance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is a single row in the decision log.
type Entry struct {
	ID        string
	Trigger   string // "scheduler" | "seed" | "suggest" | "train"
	Bucket    string
	Mode      string
	Decision  string
	Detail    string // free-form JSON payload
	CreatedAt time.Time
}

// Log is an append-only decision log backed by sqlite.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the decision log at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS decision_log (
		id TEXT PRIMARY KEY,
		trigger_type TEXT NOT NULL,
		bucket TEXT,
		mode TEXT,
		decision TEXT NOT NULL,
		detail TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init decision log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends one entry. A zero ID gets a fresh UUID, a zero
// CreatedAt gets the current time.
func (l *Log) Record(e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(
		`INSERT INTO decision_log (id, trigger_type, bucket, mode, decision, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Trigger,
		nullIfEmpty(e.Bucket),
		nullIfEmpty(e.Mode),
		e.Decision,
		nullIfEmpty(e.Detail),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT id, trigger_type, COALESCE(bucket,''), COALESCE(mode,''), decision, COALESCE(detail,''), created_at
		 FROM decision_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Trigger, &e.Bucket, &e.Mode, &e.Decision, &e.Detail, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
