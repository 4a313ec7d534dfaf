package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile    = "config.yaml"
	DefaultStoragePath   = ".notodon/notodon.db"
	DefaultGenEndpoint   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultGenModel      = "nvidia/nemotron-3-nano-30b-a3b:free"
	DefaultMaxTokens     = 300
	DefaultTone          = "professional"
	DefaultMaxChars      = 500
	DefaultVisibility    = "public"
	DefaultKeyword       = "workshop"
	DefaultSearchLimit   = 5
	DefaultMaxAttempts   = 3
	DefaultCallTimeout   = 30 * time.Second
	DefaultWatchInterval = time.Minute
	DefaultAPIListen     = ":8080"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Generate GenerateConfig `yaml:"generate"`
	Mastodon MastodonConfig `yaml:"mastodon"`
	Publish  PublishConfig  `yaml:"publish"`
	Watch    WatchConfig    `yaml:"watch"`
	Storage  StorageConfig  `yaml:"storage"`
	Sanitize SanitizeConfig `yaml:"sanitize"`
	API      APIConfig      `yaml:"api"`
}

type SourceConfig struct {
	Kind   string       `yaml:"kind"` // "notion" or "rss"
	Notion NotionConfig `yaml:"notion"`
	RSS    RSSConfig    `yaml:"rss"`
}

type NotionConfig struct {
	Page      string `yaml:"page"` // page URL or raw ID
	APIKeyEnv string `yaml:"api_key_env"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type RSSConfig struct {
	Feed string `yaml:"feed"`
}

type GenerateConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	Model     string   `yaml:"model"`
	APIKeyEnv string   `yaml:"api_key_env"`
	MaxTokens int      `yaml:"max_tokens"`
	Tone      string   `yaml:"tone"`
	MaxChars  int      `yaml:"max_chars"`
	Topics    []string `yaml:"topics"`

	// Resolved from env var at load time.
	APIKey string `yaml:"-"`
}

type MastodonConfig struct {
	InstanceURL    string `yaml:"instance_url"`
	AccessTokenEnv string `yaml:"access_token_env"`
	Visibility     string `yaml:"visibility"`
	Keyword        string `yaml:"keyword"`
	SearchLimit    int    `yaml:"search_limit"`

	// Resolved from env var at load time.
	AccessToken string `yaml:"-"`
}

type PublishConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	Timeout     Duration `yaml:"timeout"`
}

type WatchConfig struct {
	Interval Duration `yaml:"interval"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type SanitizeConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

type APIConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
// A missing required setting is an error here, never at run time.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "notion"
	}
	if cfg.Source.Notion.APIKeyEnv == "" {
		cfg.Source.Notion.APIKeyEnv = "NOTION_API_KEY"
	}
	if cfg.Generate.APIKeyEnv == "" {
		cfg.Generate.APIKeyEnv = "OPENROUTER_API_KEY"
	}
	if cfg.Mastodon.AccessTokenEnv == "" {
		cfg.Mastodon.AccessTokenEnv = "MASTODON_ACCESS_TOKEN"
	}
	if cfg.Generate.Endpoint == "" {
		cfg.Generate.Endpoint = DefaultGenEndpoint
	}
	if cfg.Generate.Model == "" {
		cfg.Generate.Model = DefaultGenModel
	}
	if cfg.Generate.MaxTokens == 0 {
		cfg.Generate.MaxTokens = DefaultMaxTokens
	}
	if cfg.Generate.Tone == "" {
		cfg.Generate.Tone = DefaultTone
	}
	if cfg.Generate.MaxChars == 0 {
		cfg.Generate.MaxChars = DefaultMaxChars
	}
	if cfg.Mastodon.Visibility == "" {
		cfg.Mastodon.Visibility = DefaultVisibility
	}
	if cfg.Mastodon.Keyword == "" {
		cfg.Mastodon.Keyword = DefaultKeyword
	}
	if cfg.Mastodon.SearchLimit == 0 {
		cfg.Mastodon.SearchLimit = DefaultSearchLimit
	}
	if cfg.Publish.MaxAttempts == 0 {
		cfg.Publish.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Publish.Timeout.Duration == 0 {
		cfg.Publish.Timeout.Duration = DefaultCallTimeout
	}
	if cfg.Watch.Interval.Duration == 0 {
		cfg.Watch.Interval.Duration = DefaultWatchInterval
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = DefaultAPIListen
	}
}

func resolveEnv(cfg *Config) {
	cfg.Source.Notion.APIKey = os.Getenv(cfg.Source.Notion.APIKeyEnv)
	cfg.Generate.APIKey = os.Getenv(cfg.Generate.APIKeyEnv)
	cfg.Mastodon.AccessToken = os.Getenv(cfg.Mastodon.AccessTokenEnv)
}

func validate(cfg *Config) error {
	switch cfg.Source.Kind {
	case "notion":
		if cfg.Source.Notion.Page == "" {
			return errors.New("source.notion.page is required")
		}
		if cfg.Source.Notion.APIKey == "" {
			return fmt.Errorf("notion API key missing (env %s is empty)", cfg.Source.Notion.APIKeyEnv)
		}
	case "rss":
		if cfg.Source.RSS.Feed == "" {
			return errors.New("source.rss.feed is required")
		}
	default:
		return fmt.Errorf("source.kind: unknown kind %q (want notion or rss)", cfg.Source.Kind)
	}

	if cfg.Generate.APIKey == "" {
		return fmt.Errorf("generator API key missing (env %s is empty)", cfg.Generate.APIKeyEnv)
	}
	if cfg.Generate.MaxChars < 1 {
		return errors.New("generate.max_chars must be at least 1")
	}
	if cfg.Generate.MaxTokens < 1 {
		return errors.New("generate.max_tokens must be at least 1")
	}

	if cfg.Mastodon.InstanceURL == "" {
		return errors.New("mastodon.instance_url is required")
	}
	if cfg.Mastodon.AccessToken == "" {
		return fmt.Errorf("mastodon access token missing (env %s is empty)", cfg.Mastodon.AccessTokenEnv)
	}
	switch cfg.Mastodon.Visibility {
	case "public", "unlisted", "private", "direct":
		// valid
	default:
		return fmt.Errorf("mastodon.visibility: unknown visibility %q", cfg.Mastodon.Visibility)
	}
	if cfg.Mastodon.SearchLimit < 1 {
		return errors.New("mastodon.search_limit must be at least 1")
	}

	if cfg.Publish.MaxAttempts < 1 {
		return errors.New("publish.max_attempts must be at least 1")
	}
	if cfg.Watch.Interval.Duration < time.Second {
		return errors.New("watch.interval must be at least 1s")
	}

	return nil
}
