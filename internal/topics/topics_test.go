package topics

import (
	"context"
	"errors"
	"testing"
)

type memState struct {
	values map[string]string
	getErr error
}

func newMemState() *memState {
	return &memState{values: make(map[string]string)}
}

func (m *memState) GetMeta(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[key], nil
}

func (m *memState) SetMeta(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestNextCyclesInOrder(t *testing.T) {
	ctx := context.Background()
	c := New([]string{"alpha", "beta", "gamma"}, newMemState())

	want := []string{"alpha", "beta", "gamma", "alpha"}
	for i, w := range want {
		got, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("Next #%d: %v", i, err)
		}
		if got != w {
			t.Fatalf("Next #%d = %q, want %q", i, got, w)
		}
	}
}

func TestCurrentDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	c := New([]string{"alpha", "beta"}, newMemState())

	for i := 0; i < 3; i++ {
		got, err := c.Current(ctx)
		if err != nil {
			t.Fatalf("Current #%d: %v", i, err)
		}
		if got != "alpha" {
			t.Fatalf("Current #%d = %q, want alpha", i, got)
		}
	}
}

func TestEmptyListFallsBackToDefaults(t *testing.T) {
	c := New(nil, newMemState())

	got, err := c.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got != DefaultTopics[0] {
		t.Fatalf("Current = %q, want first default topic", got)
	}
}

func TestCursorSurvivesListShrink(t *testing.T) {
	ctx := context.Background()
	state := newMemState()

	c := New([]string{"a", "b", "c", "d"}, state)
	for i := 0; i < 3; i++ {
		if _, err := c.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	// Same state, shorter list: the stale cursor must stay in range.
	short := New([]string{"x", "y"}, state)
	got, err := short.Next(ctx)
	if err != nil {
		t.Fatalf("Next after shrink: %v", err)
	}
	if got != "y" {
		t.Fatalf("Next after shrink = %q, want y", got)
	}
}

func TestGarbageCursorResets(t *testing.T) {
	ctx := context.Background()
	state := newMemState()
	state.values[cursorKey] = "not-a-number"

	c := New([]string{"alpha", "beta"}, state)
	got, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != "alpha" {
		t.Fatalf("Next = %q, want alpha after cursor reset", got)
	}
}

func TestStateErrorPropagates(t *testing.T) {
	state := newMemState()
	state.getErr = errors.New("db closed")

	c := New([]string{"alpha"}, state)
	if _, err := c.Next(context.Background()); err == nil {
		t.Fatal("expected error from broken state")
	}
}
