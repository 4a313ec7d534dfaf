// Package report renders a pipeline run summary for terminal, JSON, or
// Markdown consumers.
package report

import (
	"fmt"
	"io"

	"github.com/avelinab/notodon/internal/pipeline"
)

// Formatter writes a formatted run summary to w.
type Formatter interface {
	Format(w io.Writer, summary *pipeline.Summary) error
}

// New returns the formatter for a format name: "text", "json", or
// "markdown".
func New(format string) (Formatter, error) {
	switch format {
	case "text", "":
		return &TerminalFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown":
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want text, json, or markdown)", format)
	}
}
