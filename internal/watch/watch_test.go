package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avelinab/notodon/internal/pipeline"
	"github.com/avelinab/notodon/internal/source"
)

type fakeSource struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(context.Context) (source.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return source.Document{}, f.err
	}
	return source.Document{ID: "doc-1", Text: f.text}, nil
}

func (f *fakeSource) set(text string) {
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
}

type countingRunner struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (r *countingRunner) Run(context.Context) (*pipeline.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Summary{RunID: "r"}, nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

type memState struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memState) GetMeta(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memState) SetMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func TestCheckOnce_RunsOnFirstObservation(t *testing.T) {
	src := &fakeSource{text: "initial content"}
	runner := &countingRunner{}
	w := New(src, runner, &memState{}, time.Minute, nil)

	w.checkOnce(context.Background())

	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1", runner.count())
	}
}

func TestCheckOnce_SkipsUnchangedContent(t *testing.T) {
	src := &fakeSource{text: "same content"}
	runner := &countingRunner{}
	w := New(src, runner, &memState{}, time.Minute, nil)

	w.checkOnce(context.Background())
	w.checkOnce(context.Background())
	w.checkOnce(context.Background())

	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1 (unchanged content)", runner.count())
	}
}

func TestCheckOnce_RunsAgainOnChange(t *testing.T) {
	src := &fakeSource{text: "version one"}
	runner := &countingRunner{}
	w := New(src, runner, &memState{}, time.Minute, nil)

	w.checkOnce(context.Background())
	src.set("version two")
	w.checkOnce(context.Background())

	if runner.count() != 2 {
		t.Errorf("runs = %d, want 2", runner.count())
	}
}

func TestCheckOnce_FetchFailureDoesNotRun(t *testing.T) {
	src := &fakeSource{err: errors.New("store down")}
	runner := &countingRunner{}
	w := New(src, runner, &memState{}, time.Minute, nil)

	w.checkOnce(context.Background())

	if runner.count() != 0 {
		t.Errorf("runs = %d, want 0", runner.count())
	}
}

func TestCheckOnce_RunFailureWaitsForNextChange(t *testing.T) {
	src := &fakeSource{text: "content"}
	runner := &countingRunner{err: errors.New("publish rejected")}
	w := New(src, runner, &memState{}, time.Minute, nil)

	// Failed run must not retry on an unchanged document.
	w.checkOnce(context.Background())
	w.checkOnce(context.Background())
	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1", runner.count())
	}

	src.set("new content")
	w.checkOnce(context.Background())
	if runner.count() != 2 {
		t.Errorf("runs = %d, want 2 after change", runner.count())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &fakeSource{text: "content"}
	runner := &countingRunner{}
	w := New(src, runner, &memState{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	if runner.count() < 1 {
		t.Errorf("runs = %d, want at least 1", runner.count())
	}
}
