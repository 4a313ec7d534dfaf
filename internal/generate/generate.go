// Package generate derives a short social post from source text via a
// generative text service.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFailed indicates the generative service errored or returned unusable
// (empty) content.
var ErrFailed = errors.New("generation failed")

// Post is a generated message bound to the document it was derived from.
// It is consumed exactly once by the publisher.
type Post struct {
	SourceID string
	Text     string
}

// StyleHints steer the generated text.
type StyleHints struct {
	Tone     string // e.g. "professional", "playful"
	MaxChars int    // hard upper bound on output length
	Topic    string // angle to weave into the post
	Keyword  string // term to emphasize
	Feedback string // reviewer feedback from earlier rejected posts
}

// Generator produces a post from source text.
type Generator interface {
	Generate(ctx context.Context, doc SourceText, hints StyleHints) (Post, error)
}

// SourceText is the minimal view of a document a generator needs.
type SourceText struct {
	ID   string
	Text string
}

// failed wraps a failure detail in ErrFailed so callers can classify it
// with errors.Is.
func failed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrFailed)
}

// clampText enforces the character bound, cutting at the nearest word
// boundary when the text is too long.
func clampText(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return text
	}

	runes := []rune(text)
	cut := -1
	for i := maxChars; i > 0; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			cut = i
			break
		}
	}
	if cut < 0 {
		// Single word longer than the bound; hard cut.
		cut = maxChars
	}
	return strings.TrimSpace(string(runes[:cut]))
}
