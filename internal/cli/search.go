package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search the Mastodon feed for posts matching a keyword",
	Args:  cobra.MaximumNArgs(1),
	RunE:  searchAction,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results, overrides config")
	rootCmd.AddCommand(searchCmd)
}

func searchAction(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	keyword := a.cfg.Mastodon.Keyword
	if len(args) == 1 {
		keyword = args[0]
	}
	limit := a.cfg.Mastodon.SearchLimit
	if searchLimit > 0 {
		limit = searchLimit
	}

	entries, err := a.feed.Search(cmd.Context(), keyword, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No statuses found for %q.\n", keyword)
		return nil
	}

	fmt.Printf("Found %d statuses for %q:\n\n", len(entries), keyword)
	for _, e := range entries {
		author := e.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Printf("  @%s  %s\n", author, e.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    %s\n", e.Text)
		if e.URL != "" {
			fmt.Printf("    %s\n", e.URL)
		}
		fmt.Println()
	}
	return nil
}
