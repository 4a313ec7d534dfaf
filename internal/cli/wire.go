package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/avelinab/notodon/internal/config"
	"github.com/avelinab/notodon/internal/feed"
	"github.com/avelinab/notodon/internal/generate"
	"github.com/avelinab/notodon/internal/logging"
	"github.com/avelinab/notodon/internal/pipeline"
	"github.com/avelinab/notodon/internal/sanitize"
	"github.com/avelinab/notodon/internal/source"
	"github.com/avelinab/notodon/internal/store"
	"github.com/avelinab/notodon/internal/topics"
)

// app holds the collaborators most commands need. Built once per command
// invocation from the loaded config.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	src      source.Source
	feed     *feed.Client
	pipeline *pipeline.Pipeline
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logging.New(verbose)

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	gen := generate.NewLLM(cfg.Generate.Endpoint, cfg.Generate.APIKey, cfg.Generate.Model, cfg.Generate.MaxTokens)

	client, err := feed.NewClient(cfg.Mastodon.InstanceURL, cfg.Mastodon.AccessToken, cfg.Mastodon.Visibility, cfg.Publish.Timeout.Duration)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create mastodon client: %w", err)
	}

	// An empty topic list falls back to the built-in rotation.
	opts := []pipeline.Option{
		pipeline.WithHistory(db),
		pipeline.WithTopics(topics.New(cfg.Generate.Topics, db)),
	}
	if cfg.Sanitize.Enabled {
		sz, err := sanitize.New(cfg.Sanitize.Patterns)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("compile sanitize patterns: %w", err)
		}
		opts = append(opts, pipeline.WithSanitizer(sz))
	}

	p := pipeline.New(src, gen, client, client, pipeline.Config{
		Tone:               cfg.Generate.Tone,
		MaxChars:           cfg.Generate.MaxChars,
		Keyword:            cfg.Mastodon.Keyword,
		SearchLimit:        cfg.Mastodon.SearchLimit,
		MaxPublishAttempts: cfg.Publish.MaxAttempts,
	}, log, opts...)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    db,
		src:      src,
		feed:     client,
		pipeline: p,
	}, nil
}

func buildSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case "notion":
		src, err := source.NewNotion(cfg.Source.Notion.Page, cfg.Source.Notion.APIKey)
		if err != nil {
			return nil, fmt.Errorf("create notion source: %w", err)
		}
		return src, nil
	case "rss":
		src, err := source.NewRSS(cfg.Source.RSS.Feed)
		if err != nil {
			return nil, fmt.Errorf("create rss source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}
