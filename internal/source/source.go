// Package source fetches the text of a single document from an external
// content store.
package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the document could not be retrieved: unknown
// identifier, transport failure, or an empty store response.
var ErrUnavailable = errors.New("source unavailable")

// Document is one block of source content, immutable once fetched.
type Document struct {
	ID    string
	Title string
	Text  string
}

// Source retrieves the current document from a content store.
type Source interface {
	// Name returns the source identifier (e.g. "notion").
	Name() string

	// Fetch returns the document this source is bound to.
	Fetch(ctx context.Context) (Document, error)
}

// unavailable wraps a failure detail in ErrUnavailable so callers can
// classify it with errors.Is.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnavailable)
}
