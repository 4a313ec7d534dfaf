package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = s.Close() }()
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	err := s.StartRun(ctx, RunInput{
		ID:         "run-1",
		Source:     "notion",
		DocumentID: "doc-1",
		StartedAt:  started,
	})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].State != "running" {
		t.Fatalf("runs = %+v", runs)
	}

	err = s.FinishRun(ctx, RunResult{
		ID:         "run-1",
		DocumentID: "doc-1",
		State:      "done",
		EntryID:    "42",
		EntryURL:   "https://mastodon.example/@linda/42",
		PostText:   "hello",
		Attempts:   2,
		FinishedAt: started.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err = s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	run := runs[0]
	if run.State != "done" || run.EntryID != "42" || run.Attempts != 2 {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("started at = %v, want %v", run.StartedAt, started)
	}
	if !run.FinishedAt.Equal(started.Add(time.Minute)) {
		t.Errorf("finished at = %v", run.FinishedAt)
	}
}

func TestFinishRun_UnknownID(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishRun(context.Background(), RunResult{ID: "ghost", State: "done", FinishedAt: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "unknown run id") {
		t.Fatalf("err = %v, want unknown run id", err)
	}
}

func TestRecentRuns_NewestFirstAndBounded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		err := s.StartRun(ctx, RunInput{
			ID:         id,
			Source:     "notion",
			DocumentID: "doc",
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("start %s: %v", id, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("order = %s,%s, want run-c,run-b", runs[0].ID, runs[1].ID)
	}
}

func TestFeedback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if err := s.AddFeedback(ctx, "post one", "too salesy", base); err != nil {
		t.Fatalf("add feedback: %v", err)
	}
	if err := s.AddFeedback(ctx, "post two", "less jargon", base.Add(time.Hour)); err != nil {
		t.Fatalf("add feedback: %v", err)
	}

	all, err := s.RecentFeedback(ctx, 10)
	if err != nil {
		t.Fatalf("recent feedback: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Reason != "less jargon" {
		t.Errorf("newest first: got %q", all[0].Reason)
	}

	if err := s.AddFeedback(ctx, "post", "   ", base); err == nil {
		t.Error("expected error for blank reason")
	}
}

func TestMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := s.GetMeta(ctx, "content_hash")
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if v != "" {
		t.Errorf("unset key = %q, want empty", v)
	}

	if err := s.SetMeta(ctx, "content_hash", "abc123"); err != nil {
		t.Fatalf("set meta: %v", err)
	}
	if err := s.SetMeta(ctx, "content_hash", "def456"); err != nil {
		t.Fatalf("overwrite meta: %v", err)
	}

	v, err = s.GetMeta(ctx, "content_hash")
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if v != "def456" {
		t.Errorf("value = %q, want def456", v)
	}
}

func TestMigrate_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.SetMeta(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set meta: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	v, err := s.GetMeta(context.Background(), "k")
	if err != nil || v != "v" {
		t.Fatalf("get meta after reopen = %q, %v", v, err)
	}
}
