package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/avelinab/notodon/internal/feed"
	"github.com/avelinab/notodon/internal/pipeline"
)

type jsonReport struct {
	RunID           string      `json:"run_id"`
	DocumentID      string      `json:"document_id"`
	PostText        string      `json:"post_text"`
	Entry           jsonEntry   `json:"entry"`
	PublishAttempts int         `json:"publish_attempts"`
	Results         []jsonEntry `json:"results"`
	StartedAt       string      `json:"started_at"`
	FinishedAt      string      `json:"finished_at"`
}

type jsonEntry struct {
	ID        string `json:"id"`
	Author    string `json:"author,omitempty"`
	Text      string `json:"text"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// JSONFormatter renders a run summary as indented JSON.
type JSONFormatter struct{}

// Format writes the summary as JSON to w.
func (f *JSONFormatter) Format(w io.Writer, summary *pipeline.Summary) error {
	out := jsonReport{
		RunID:           summary.RunID,
		DocumentID:      summary.Document.ID,
		PostText:        summary.Post.Text,
		Entry:           toJSONEntry(summary.Entry),
		PublishAttempts: summary.PublishAttempts,
		Results:         make([]jsonEntry, 0, len(summary.Results)),
		StartedAt:       summary.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:      summary.FinishedAt.UTC().Format(time.RFC3339),
	}
	for _, entry := range summary.Results {
		out.Results = append(out.Results, toJSONEntry(entry))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONEntry(entry feed.Entry) jsonEntry {
	je := jsonEntry{
		ID:     entry.ID,
		Author: entry.Author,
		Text:   entry.Text,
		URL:    entry.URL,
	}
	if !entry.CreatedAt.IsZero() {
		je.CreatedAt = entry.CreatedAt.UTC().Format(time.RFC3339)
	}
	return je
}
