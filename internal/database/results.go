package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
)

// SaveResults stores the document of a run and applies the retention
// limit in the same transaction.
func (s *StatsDB) SaveResults(ctx context.Context, runID string, results *aggregate.Results) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results (run_id, created_at, payload) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), string(payload),
	); err != nil {
		return fmt.Errorf("inserting results: %w", err)
	}
	if s.keep > 0 {
		if _, err := pruneResults(ctx, tx, s.keep); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestResults returns the newest stored document.
func (s *StatsDB) LatestResults(ctx context.Context) (*aggregate.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM results ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoResults
	}
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}

	var results aggregate.Results
	if err := json.Unmarshal([]byte(payload), &results); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return &results, nil
}

// PruneResults deletes all but the newest keep documents.
func (s *StatsDB) PruneResults(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pruneResults(ctx, s.db, keep)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func pruneResults(ctx context.Context, db execer, keep int) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM results WHERE id NOT IN (
			SELECT id FROM results ORDER BY id DESC LIMIT ?
		)`, max(keep, 1))
	if err != nil {
		return 0, fmt.Errorf("pruning results: %w", err)
	}
	return res.RowsAffected()
}
