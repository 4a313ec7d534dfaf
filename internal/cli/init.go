package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/avelinab/notodon/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config file",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}
	if !wrote {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
		return nil
	}
	fmt.Printf("Initialized %s.\n", configDir)
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# notodon configuration

source:
  kind: notion
  notion:
    page: "https://www.notion.so/your-page-id-here"
    api_key_env: NOTION_API_KEY
  # kind: rss
  # rss:
  #   feed: "https://example.com/feed.xml"

generate:
  endpoint: https://openrouter.ai/api/v1/chat/completions
  model: nvidia/nemotron-3-nano-30b-a3b:free
  api_key_env: OPENROUTER_API_KEY
  max_tokens: 300
  tone: professional
  max_chars: 500
  topics: []
  # - "lessons learned"
  # - "behind the scenes"

mastodon:
  instance_url: https://mastodon.social
  access_token_env: MASTODON_ACCESS_TOKEN
  visibility: public
  keyword: workshop
  search_limit: 5

publish:
  max_attempts: 3
  timeout: 30s

watch:
  interval: 1m

storage:
  path: .notodon/notodon.db

sanitize:
  enabled: false
  patterns: []

api:
  listen: ":8080"
`
