package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	feedbackLimit int
	feedbackPost  string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage feedback on generated posts",
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent feedback",
	RunE:  feedbackListAction,
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add <reason>",
	Short: "Record feedback used to steer future posts",
	Args:  cobra.ExactArgs(1),
	RunE:  feedbackAddAction,
}

func init() {
	feedbackListCmd.Flags().IntVar(&feedbackLimit, "limit", 20, "maximum entries to show")
	feedbackAddCmd.Flags().StringVar(&feedbackPost, "post", "", "the post text the feedback refers to")
	feedbackCmd.AddCommand(feedbackListCmd, feedbackAddCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func feedbackListAction(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	all, err := a.store.RecentFeedback(cmd.Context(), feedbackLimit)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No feedback recorded.")
		return nil
	}

	for _, fb := range all {
		fmt.Printf("  #%d  %s\n", fb.ID, fb.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("    reason: %s\n", fb.Reason)
		if fb.PostText != "" {
			fmt.Printf("    post:   %s\n", fb.PostText)
		}
		fmt.Println()
	}
	return nil
}

func feedbackAddAction(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.AddFeedback(cmd.Context(), feedbackPost, args[0], time.Now()); err != nil {
		return err
	}
	fmt.Println("Feedback recorded.")
	return nil
}
