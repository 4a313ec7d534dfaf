// Package pipeline sequences one content workflow run: fetch source text,
// generate a post, publish it, then search the feed for related posts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelinab/notodon/internal/feed"
	"github.com/avelinab/notodon/internal/generate"
	"github.com/avelinab/notodon/internal/sanitize"
	"github.com/avelinab/notodon/internal/source"
	"github.com/avelinab/notodon/internal/store"
	"github.com/avelinab/notodon/internal/topics"
)

// Step names the workflow states. Transitions are strictly sequential:
// idle → fetching → generating → publishing → searching → done, with any
// step able to fail terminally.
type Step string

const (
	StepIdle       Step = "idle"
	StepFetching   Step = "fetching"
	StepGenerating Step = "generating"
	StepPublishing Step = "publishing"
	StepSearching  Step = "searching"
	StepDone       Step = "done"
)

// StepError reports the step a run failed in and the underlying cause.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Publisher submits one post to the feed.
type Publisher interface {
	Publish(ctx context.Context, text string) (feed.Entry, error)
}

// Searcher queries the feed for recent posts matching a keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]feed.Entry, error)
}

// History records runs and supplies reviewer feedback for prompt building.
type History interface {
	StartRun(ctx context.Context, in store.RunInput) error
	FinishRun(ctx context.Context, res store.RunResult) error
	RecentFeedback(ctx context.Context, limit int) ([]store.Feedback, error)
}

// Config holds the per-run knobs.
type Config struct {
	Tone        string
	MaxChars    int
	Keyword     string
	SearchLimit int

	// MaxPublishAttempts bounds retries of the publishing step when the
	// feed is unavailable. Rejections are never retried.
	MaxPublishAttempts int
}

// Summary is the result of a successful run.
type Summary struct {
	RunID           string
	Document        source.Document
	Post            generate.Post
	Entry           feed.Entry
	Results         []feed.Entry
	PublishAttempts int
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Pipeline runs the workflow. At most one run is in flight at a time;
// overlapping calls to Run serialize on an internal lock so the same
// accounts never see concurrent publishes.
type Pipeline struct {
	src       source.Source
	generator generate.Generator
	publisher Publisher
	searcher  Searcher
	sanitizer *sanitize.Sanitizer
	cycler    *topics.Cycler
	history   History
	cfg       Config
	log       *zap.Logger

	mu sync.Mutex

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(time.Duration)

	// newRunID is swapped out in tests for stable run ids.
	newRunID func() string

	now func() time.Time
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithSanitizer scrubs generated text before publishing.
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(p *Pipeline) { p.sanitizer = s }
}

// WithTopics injects a rotating topic angle into generation.
func WithTopics(c *topics.Cycler) Option {
	return func(p *Pipeline) { p.cycler = c }
}

// WithHistory records runs and feeds reviewer feedback back into prompts.
func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

// New creates a pipeline from its four collaborators.
func New(src source.Source, gen generate.Generator, pub Publisher, search Searcher, cfg Config, log *zap.Logger, opts ...Option) *Pipeline {
	if cfg.MaxPublishAttempts < 1 {
		cfg.MaxPublishAttempts = 1
	}
	if cfg.SearchLimit < 1 {
		cfg.SearchLimit = 5
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Pipeline{
		src:       src,
		generator: gen,
		publisher: pub,
		searcher:  search,
		cfg:       cfg,
		log:       log,
		sleep:     time.Sleep,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one workflow. On failure it returns a *StepError naming the
// step that failed; on success exactly one entry has been published.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	summary := &Summary{
		RunID:     p.newRunID(),
		StartedAt: p.now(),
	}
	log := p.log.With(zap.String("run_id", summary.RunID))

	p.recordStart(ctx, summary)

	err := p.runSteps(ctx, log, summary)
	summary.FinishedAt = p.now()
	p.recordFinish(ctx, summary, err)

	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (p *Pipeline) runSteps(ctx context.Context, log *zap.Logger, summary *Summary) error {
	// Fetching
	if err := stepReady(ctx, StepFetching); err != nil {
		return err
	}
	doc, err := p.src.Fetch(ctx)
	if err != nil {
		return &StepError{Step: StepFetching, Err: err}
	}
	summary.Document = doc
	log.Info("fetched document",
		zap.String("source", p.src.Name()),
		zap.String("document_id", doc.ID),
		zap.Int("chars", len(doc.Text)))

	// Generating
	if err := stepReady(ctx, StepGenerating); err != nil {
		return err
	}
	post, err := p.generator.Generate(ctx, generate.SourceText{ID: doc.ID, Text: doc.Text}, p.styleHints(ctx))
	if err != nil {
		return &StepError{Step: StepGenerating, Err: err}
	}
	if p.sanitizer != nil {
		post.Text = p.sanitizer.Apply(post.Text)
		if post.Text == "" {
			return &StepError{Step: StepGenerating, Err: fmt.Errorf("post empty after sanitizing: %w", generate.ErrFailed)}
		}
	}
	summary.Post = post
	log.Info("generated post", zap.Int("chars", len(post.Text)))

	// Publishing
	if err := stepReady(ctx, StepPublishing); err != nil {
		return err
	}
	entry, attempts, err := p.publishWithRetry(ctx, log, post.Text)
	summary.PublishAttempts = attempts
	if err != nil {
		return &StepError{Step: StepPublishing, Err: err}
	}
	summary.Entry = entry
	log.Info("published entry", zap.String("entry_id", entry.ID), zap.String("url", entry.URL), zap.Int("attempts", attempts))

	// Searching
	if err := stepReady(ctx, StepSearching); err != nil {
		return err
	}
	results, err := p.searcher.Search(ctx, p.cfg.Keyword, p.cfg.SearchLimit)
	if err != nil {
		return &StepError{Step: StepSearching, Err: err}
	}
	summary.Results = results
	log.Info("searched feed", zap.String("keyword", p.cfg.Keyword), zap.Int("results", len(results)))

	return nil
}

// publishWithRetry retries only outages, with exponential backoff, bounded
// by MaxPublishAttempts. A rejection fails after exactly one attempt so a
// duplicate post is never forced through.
func (p *Pipeline) publishWithRetry(ctx context.Context, log *zap.Logger, text string) (feed.Entry, int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxPublishAttempts; attempt++ {
		entry, err := p.publisher.Publish(ctx, text)
		if err == nil {
			return entry, attempt, nil
		}
		if !errors.Is(err, feed.ErrUnavailable) {
			return feed.Entry{}, attempt, err
		}
		lastErr = err

		if attempt < p.cfg.MaxPublishAttempts {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second // 1s, 2s, 4s
			log.Warn("publish unavailable, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			p.sleep(backoff)
		}

		if ctx.Err() != nil {
			return feed.Entry{}, attempt, ctx.Err()
		}
	}
	return feed.Entry{}, p.cfg.MaxPublishAttempts, lastErr
}

// styleHints builds generation hints from config, the topic cycle, and
// recent reviewer feedback. Hint enrichment is best-effort: a failure here
// must not fail the run.
func (p *Pipeline) styleHints(ctx context.Context) generate.StyleHints {
	hints := generate.StyleHints{
		Tone:     p.cfg.Tone,
		MaxChars: p.cfg.MaxChars,
		Keyword:  p.cfg.Keyword,
	}

	if p.cycler != nil {
		topic, err := p.cycler.Next(ctx)
		if err != nil {
			p.log.Warn("topic cycle failed", zap.Error(err))
		} else {
			hints.Topic = topic
		}
	}

	if p.history != nil {
		feedback, err := p.history.RecentFeedback(ctx, 3)
		if err != nil {
			p.log.Warn("load feedback failed", zap.Error(err))
		} else {
			var reasons []string
			for _, fb := range feedback {
				reasons = append(reasons, "- "+fb.Reason)
			}
			hints.Feedback = strings.Join(reasons, "\n")
		}
	}

	return hints
}

// stepReady is the cooperative cancellation check taken before entering
// each state. In-flight calls are not interrupted beyond their own ctx.
func stepReady(ctx context.Context, next Step) error {
	if err := ctx.Err(); err != nil {
		return &StepError{Step: next, Err: err}
	}
	return nil
}

func (p *Pipeline) recordStart(ctx context.Context, summary *Summary) {
	if p.history == nil {
		return
	}
	err := p.history.StartRun(ctx, store.RunInput{
		ID:        summary.RunID,
		Source:    p.src.Name(),
		StartedAt: summary.StartedAt,
	})
	if err != nil {
		p.log.Warn("record run start failed", zap.Error(err))
	}
}

func (p *Pipeline) recordFinish(ctx context.Context, summary *Summary, runErr error) {
	if p.history == nil {
		return
	}

	res := store.RunResult{
		ID:         summary.RunID,
		DocumentID: summary.Document.ID,
		State:      string(StepDone),
		EntryID:    summary.Entry.ID,
		EntryURL:   summary.Entry.URL,
		PostText:   summary.Post.Text,
		Attempts:   summary.PublishAttempts,
		FinishedAt: summary.FinishedAt,
	}
	if runErr != nil {
		res.State = "failed"
		res.Error = runErr.Error()
		var stepErr *StepError
		if errors.As(runErr, &stepErr) {
			res.FailedStep = string(stepErr.Step)
		}
	}

	if err := p.history.FinishRun(ctx, res); err != nil {
		p.log.Warn("record run finish failed", zap.Error(err))
	}
}
