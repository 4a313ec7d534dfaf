package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent workflow runs",
	RunE:  historyAction,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "maximum runs to show")
	rootCmd.AddCommand(historyCmd)
}

func historyAction(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.store.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("  %s  %s  %s", run.StartedAt.Local().Format("2006-01-02 15:04"), run.ID, run.State)
		if run.State == "failed" {
			fmt.Printf(" at %s: %s", run.FailedStep, run.Error)
		}
		fmt.Println()
		if run.PostText != "" {
			fmt.Printf("    post: %s\n", run.PostText)
		}
		if run.EntryURL != "" {
			fmt.Printf("    url:  %s\n", run.EntryURL)
		}
	}
	return nil
}
