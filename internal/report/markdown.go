package report

import (
	"fmt"
	"io"

	"github.com/avelinab/notodon/internal/pipeline"
)

// MarkdownFormatter renders a run summary as Markdown.
type MarkdownFormatter struct{}

// Format writes the summary as Markdown to w.
func (f *MarkdownFormatter) Format(w io.Writer, summary *pipeline.Summary) error {
	fmt.Fprintf(w, "# notodon run %s\n\n", summary.RunID)
	fmt.Fprintf(w, "Finished %s, document `%s`\n\n", summary.FinishedAt.Format(timeLayout), summary.Document.ID)

	fmt.Fprintf(w, "## Published\n\n")
	if summary.Entry.URL != "" {
		fmt.Fprintf(w, "[%s](%s)", summary.Entry.ID, summary.Entry.URL)
	} else {
		fmt.Fprint(w, summary.Entry.ID)
	}
	if summary.PublishAttempts > 1 {
		fmt.Fprintf(w, " — %d attempts", summary.PublishAttempts)
	}
	fmt.Fprintf(w, "\n\n> %s\n\n", summary.Post.Text)

	if len(summary.Results) == 0 {
		fmt.Fprintln(w, "No related posts found.")
		return nil
	}

	fmt.Fprintf(w, "## Related posts (%d)\n\n", len(summary.Results))
	for _, entry := range summary.Results {
		fmt.Fprintf(w, "- **@%s** %s", entry.Author, firstNRunes(entry.Text, 120))
		if entry.URL != "" {
			fmt.Fprintf(w, " ([link](%s))", entry.URL)
		}
		fmt.Fprintln(w)
	}

	return nil
}
