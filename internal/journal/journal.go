// Package journal keeps a local SQLite record of every booking submission attempt.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"barberbook/internal/booking"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Journal is the submission journal.
type Journal struct {
	db *sql.DB
}

// Open opens the journal at path and creates its tables.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			wizard_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			payload TEXT,
			outcome TEXT NOT NULL,
			message TEXT,
			booking_id TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_outcome ON submissions(outcome)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// Record stores one attempt.
func (j *Journal) Record(ctx context.Context, a booking.Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions (id, wizard_id, mode, payload, outcome, message, booking_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WizardID, string(a.Mode), string(a.Payload), a.Outcome, a.Message, a.BookingID,
		a.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// List returns the attempts made in [from, to), oldest first. A zero bound is open.
func (j *Journal) List(ctx context.Context, from, to time.Time) ([]booking.Attempt, error) {
	query := `SELECT id, wizard_id, mode, payload, outcome, message, booking_id, created_at FROM submissions`
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, from.UTC().Format(timeLayout))
	}
	if !to.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, to.UTC().Format(timeLayout))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []booking.Attempt
	for rows.Next() {
		var (
			a                           booking.Attempt
			mode, created               string
			payload, message, bookingID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.WizardID, &mode, &payload, &a.Outcome, &message, &bookingID, &created); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		a.Mode = booking.Mode(mode)
		a.Payload = []byte(payload.String)
		a.Message = message.String
		a.BookingID = bookingID.String
		if a.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Ping checks the database is usable.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

var _ booking.Recorder = (*Journal)(nil)
