// Package watch polls the content source on a fixed interval and triggers
// a pipeline run whenever the document changes.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/avelinab/notodon/internal/pipeline"
	"github.com/avelinab/notodon/internal/source"
)

const hashKey = "watch_content_hash"

// Runner executes one workflow run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
}

// State persists the last seen content hash between ticks and restarts.
type State interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Watcher owns a single timer; each tick fetches the document, compares a
// content hash against the stored one, and runs the pipeline on change.
// Run failures are logged and the watcher waits for the next tick.
type Watcher struct {
	src      source.Source
	runner   Runner
	state    State
	interval time.Duration
	log      *zap.Logger
}

// New creates a watcher polling src every interval.
func New(src source.Source, runner Runner, state State, interval time.Duration, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		src:      src,
		runner:   runner,
		state:    state,
		interval: interval,
		log:      log,
	}
}

// Run polls until ctx is cancelled. The first check happens immediately.
// Returns ctx.Err() on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("watch started",
		zap.String("source", w.src.Name()),
		zap.Duration("interval", w.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watch stopped")
			return ctx.Err()
		case <-timer.C:
		}

		w.checkOnce(ctx)
		timer.Reset(w.interval)
	}
}

// checkOnce performs one poll cycle. The hash is persisted as soon as a
// change is detected, before the run: a failed run must wait for the next
// change rather than re-publish on every tick.
func (w *Watcher) checkOnce(ctx context.Context) {
	doc, err := w.src.Fetch(ctx)
	if err != nil {
		w.log.Warn("fetch failed", zap.Error(err))
		return
	}

	hash := contentHash(doc.Text)
	prev, err := w.state.GetMeta(ctx, hashKey)
	if err != nil {
		w.log.Warn("load content hash failed", zap.Error(err))
		return
	}
	if prev == hash {
		return
	}

	w.log.Info("document changed", zap.String("document_id", doc.ID))
	if err := w.state.SetMeta(ctx, hashKey, hash); err != nil {
		w.log.Warn("save content hash failed", zap.Error(err))
		return
	}

	summary, err := w.runner.Run(ctx)
	if err != nil {
		w.log.Error("run failed", zap.Error(err))
		return
	}
	w.log.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.String("entry_id", summary.Entry.ID))
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
