package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one recorded statistics run.
type Run struct {
	ID            string         `json:"id"`
	Mode          string         `json:"mode"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Status        string         `json:"status"`
	Users         int            `json:"users"`
	Series        int            `json:"series"`
	LookupsFailed bool           `json:"lookups_failed"`
	Skipped       map[string]int `json:"skipped,omitempty"`
	Duration      time.Duration  `json:"duration"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// StartRun records a running run and returns its id.
func (s *StatsDB) StartRun(ctx context.Context, mode aggregate.Mode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, status)
		VALUES (?, ?, ?, ?)`,
		id, string(mode), time.Now().UTC(), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run successful.
func (s *StatsDB) CompleteRun(ctx context.Context, runID string, summary aggregate.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []byte
	if len(summary.Skipped) > 0 {
		var err error
		if skipped, err = json.Marshal(summary.Skipped); err != nil {
			return fmt.Errorf("encoding skipped items: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			completed_at = ?,
			status = ?,
			users = ?,
			series = ?,
			lookups_failed = ?,
			skipped = ?,
			duration_ms = ?
		WHERE id = ?`,
		time.Now().UTC(), StatusSuccess, summary.Users, summary.Series,
		summary.LookupsFailed, nullString(string(skipped)), summary.Duration.Milliseconds(), runID,
	)
	return err
}

// FailRun marks a run failed with runErr as its message.
func (s *StatsDB) FailRun(ctx context.Context, runID string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET completed_at = ?, status = ?, error_message = ?
		WHERE id = ?`,
		time.Now().UTC(), StatusFailed, msg, runID,
	)
	return err
}

// RecentRuns returns the n most recent runs, newest first.
func (s *StatsDB) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, started_at, completed_at, status, users, series,
		       lookups_failed, skipped, duration_ms, error_message
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LastRunForMode returns the newest run of mode, or nil when none exists.
func (s *StatsDB) LastRunForMode(ctx context.Context, mode aggregate.Mode) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, started_at, completed_at, status, users, series,
		       lookups_failed, skipped, duration_ms, error_message
		FROM runs WHERE mode = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, string(mode))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r           Run
		completedAt sql.NullTime
		skipped     sql.NullString
		errMsg      sql.NullString
		durationMS  int64
	)
	err := row.Scan(&r.ID, &r.Mode, &r.StartedAt, &completedAt, &r.Status, &r.Users, &r.Series,
		&r.LookupsFailed, &skipped, &durationMS, &errMsg)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	if skipped.Valid && skipped.String != "" {
		if err := json.Unmarshal([]byte(skipped.String), &r.Skipped); err != nil {
			return nil, fmt.Errorf("decoding skipped items of run %s: %w", r.ID, err)
		}
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.ErrorMessage = errMsg.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
