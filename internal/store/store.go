// Package store persists run history, post feedback, and small key/value
// state in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Run is one recorded workflow run.
type Run struct {
	ID         string
	Source     string
	DocumentID string
	State      string
	FailedStep string
	Error      string
	EntryID    string
	EntryURL   string
	PostText   string
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunInput starts a run record; the run is finished with FinishRun.
type RunInput struct {
	ID         string
	Source     string
	DocumentID string
	StartedAt  time.Time
}

// RunResult finalizes a run record.
type RunResult struct {
	ID         string
	DocumentID string
	State      string
	FailedStep string
	Error      string
	EntryID    string
	EntryURL   string
	PostText   string
	Attempts   int
	FinishedAt time.Time
}

// Feedback is one reviewer note about a rejected or published post.
type Feedback struct {
	ID        int64
	PostText  string
	Reason    string
	CreatedAt time.Time
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a new run record in the given state ("running").
func (s *Store) StartRun(ctx context.Context, in RunInput) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(in.ID) == "" {
		return errors.New("run id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, document_id, state, started_at)
		VALUES (?, ?, ?, 'running', ?)
	`, in.ID, in.Source, in.DocumentID, formatTime(in.StartedAt))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a previously started run.
func (s *Store) FinishRun(ctx context.Context, res RunResult) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			document_id = ?,
			state = ?,
			failed_step = ?,
			error = ?,
			entry_id = ?,
			entry_url = ?,
			post_text = ?,
			attempts = ?,
			finished_at = ?
		WHERE id = ?
	`,
		res.DocumentID,
		res.State,
		res.FailedStep,
		res.Error,
		res.EntryID,
		res.EntryURL,
		res.PostText,
		res.Attempts,
		formatTime(res.FinishedAt),
		res.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := r.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run id %q", res.ID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, document_id, state, failed_step, error,
			entry_id, entry_url, post_text, attempts, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run                  Run
			startedAt, finishedAt string
		)
		if err := rows.Scan(
			&run.ID, &run.Source, &run.DocumentID, &run.State, &run.FailedStep, &run.Error,
			&run.EntryID, &run.EntryURL, &run.PostText, &run.Attempts, &startedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// AddFeedback stores one reviewer note about a post.
func (s *Store) AddFeedback(ctx context.Context, postText, reason string, at time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(reason) == "" {
		return errors.New("feedback reason is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (post_text, reason, created_at)
		VALUES (?, ?, ?)
	`, postText, reason, formatTime(at))
	if err != nil {
		return fmt.Errorf("add feedback: %w", err)
	}
	return nil
}

// RecentFeedback returns up to limit feedback entries, newest first.
func (s *Store) RecentFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit < 1 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_text, reason, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var all []Feedback
	for rows.Next() {
		var (
			fb        Feedback
			createdAt string
		)
		if err := rows.Scan(&fb.ID, &fb.PostText, &fb.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		if fb.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		all = append(all, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return all, nil
}

// GetMeta returns the value for key, or "" when the key is unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta stores value under key, replacing any previous value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("meta key is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
