// Package archive provides SQLite-backed retention of completed training
// plans. The KV store evicts records after an hour; the archive keeps the
// finished plan around so it can be re-sent or inspected later. Writes are
// best-effort: an archive failure never affects the request lifecycle.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"trainplan/pkg/plan"
)

// ErrNotFound indicates no archived plan exists for the request ID.
var ErrNotFound = errors.New("archived plan not found")

const schema = `
CREATE TABLE IF NOT EXISTS completed_plans (
	request_id   TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	race_date    TEXT NOT NULL,
	goal_time    TEXT NOT NULL,
	total_weeks  INTEGER NOT NULL,
	plan_text    TEXT NOT NULL,
	completed_at TEXT NOT NULL
);
`

// Entry is one archived plan.
type Entry struct {
	RequestID   string    `json:"request_id"`
	Email       string    `json:"email"`
	RaceDate    string    `json:"race_date"`
	GoalTime    string    `json:"goal_time"`
	TotalWeeks  int       `json:"total_weeks"`
	PlanText    string    `json:"plan_text"`
	CompletedAt time.Time `json:"completed_at"`
}

// Archive stores completed plans in a local SQLite database.
type Archive struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping archive database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Archive{db: db}, nil
}

// SaveCompleted archives a completed plan request. Re-archiving the same
// request ID overwrites the previous row.
func (a *Archive) SaveCompleted(ctx context.Context, r *plan.Request) error {
	if r.Status != plan.StatusCompleted {
		return fmt.Errorf("refusing to archive request %s in status %s", r.ID, r.Status)
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO completed_plans
			(request_id, email, race_date, goal_time, total_weeks, plan_text, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Email,
		r.RaceDate.Format("2006-01-02"),
		r.GoalTime.String(),
		r.TotalWeeks,
		r.FullText(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to archive plan %s: %w", r.ID, err)
	}
	return nil
}

// Get returns the archived plan for a request ID.
func (a *Archive) Get(ctx context.Context, requestID string) (*Entry, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT request_id, email, race_date, goal_time, total_weeks, plan_text, completed_at
		FROM completed_plans WHERE request_id = ?`, requestID)

	var e Entry
	var completedAt string
	err := row.Scan(&e.RequestID, &e.Email, &e.RaceDate, &e.GoalTime, &e.TotalWeeks, &e.PlanText, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archived plan %s: %w", requestID, err)
	}

	if ts, parseErr := time.Parse(time.RFC3339, completedAt); parseErr == nil {
		e.CompletedAt = ts
	}
	return &e, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close archive database: %w", err)
	}
	return nil
}
