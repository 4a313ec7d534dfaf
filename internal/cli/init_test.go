package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avelinab/notodon/internal/config"
)

func TestInitCreatesConfig(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "conf")
	setConfigDir(t, tmpDir)

	out, err := captureStdout(t, func() error {
		return initAction(nil, nil)
	})
	if err != nil {
		t.Fatalf("init action: %v", err)
	}
	requireContains(t, out, "created:")

	data, err := os.ReadFile(filepath.Join(tmpDir, config.DefaultConfigFile))
	if err != nil {
		t.Fatalf("read created config: %v", err)
	}
	if !strings.Contains(string(data), "kind: notion") {
		t.Fatal("example config missing notion source")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigDir(t, tmpDir)

	if _, err := captureStdout(t, func() error { return initAction(nil, nil) }); err != nil {
		t.Fatalf("first init: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(tmpDir, config.DefaultConfigFile))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	out, err := captureStdout(t, func() error { return initAction(nil, nil) })
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	requireContains(t, out, "already initialized")

	after, err := os.ReadFile(filepath.Join(tmpDir, config.DefaultConfigFile))
	if err != nil {
		t.Fatalf("reread config: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("second init modified the config file")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	tmpDir := t.TempDir()
	setConfigDir(t, tmpDir)

	if _, err := captureStdout(t, func() error { return initAction(nil, nil) }); err != nil {
		t.Fatalf("init action: %v", err)
	}

	t.Setenv("NOTION_API_KEY", "test-notion-key")
	t.Setenv("OPENROUTER_API_KEY", "test-llm-key")
	t.Setenv("MASTODON_ACCESS_TOKEN", "test-masto-token")

	cfg, err := config.Load(tmpDir)
	if err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
	if cfg.Source.Kind != "notion" {
		t.Fatalf("source kind = %q, want notion", cfg.Source.Kind)
	}
	if cfg.Mastodon.Keyword != "workshop" {
		t.Fatalf("keyword = %q, want workshop", cfg.Mastodon.Keyword)
	}
}
