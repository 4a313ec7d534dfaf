package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/avelinab/notodon/internal/report"
)

var runFormat string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, generate, publish, and search once",
	RunE:  runAction,
}

func init() {
	runCmd.Flags().StringVar(&runFormat, "format", "text", "output format: text, json, markdown")
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	formatter, err := report.New(runFormat)
	if err != nil {
		return err
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, summary)
}
