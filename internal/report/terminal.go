package report

import (
	"fmt"
	"io"

	"github.com/avelinab/notodon/internal/pipeline"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// TerminalFormatter renders a run summary as plain terminal text.
type TerminalFormatter struct{}

// Format writes the summary to w.
func (f *TerminalFormatter) Format(w io.Writer, summary *pipeline.Summary) error {
	fmt.Fprintf(w, "notodon run %s — %s\n\n", summary.RunID, summary.FinishedAt.Format(timeLayout))

	fmt.Fprintf(w, "Source document: %s\n", summary.Document.ID)
	if summary.Document.Title != "" {
		fmt.Fprintf(w, "  %s\n", summary.Document.Title)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Published entry %s", summary.Entry.ID)
	if summary.PublishAttempts > 1 {
		fmt.Fprintf(w, " (after %d attempts)", summary.PublishAttempts)
	}
	fmt.Fprintln(w)
	if summary.Entry.URL != "" {
		fmt.Fprintf(w, "  %s\n", summary.Entry.URL)
	}
	fmt.Fprintf(w, "  %s\n\n", summary.Post.Text)

	if len(summary.Results) == 0 {
		fmt.Fprintln(w, "No related posts found.")
		return nil
	}

	fmt.Fprintf(w, "Related posts (%d):\n", len(summary.Results))
	for _, entry := range summary.Results {
		fmt.Fprintf(w, "  @%s — %s\n", entry.Author, entry.CreatedAt.Format(timeLayout))
		fmt.Fprintf(w, "    %s\n", firstNRunes(entry.Text, 120))
		if entry.URL != "" {
			fmt.Fprintf(w, "    %s\n", entry.URL)
		}
	}

	return nil
}

func firstNRunes(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "…"
		}
		count++
	}
	return s
}
