// Package naming gives eras a title and summary using a text generation
// backend, falling back to a fixed template whenever the backend fails.
package naming

import (
	"context"
	"errors"
)

// ErrTransient marks failures worth retrying: rate limits, server
// errors and timeouts.
var ErrTransient = errors.New("transient generation failure")

// Request is one prompt for the text generation backend.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator produces raw text for a prompt. The text is expected to be a
// JSON object with "title" and "summary", but may be anything.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// TagSource looks up descriptive tags (genres) for an artist.
type TagSource interface {
	ArtistTags(ctx context.Context, artist string) ([]string, error)
}

// statusTransient reports whether an HTTP status from a backend is worth
// retrying.
func statusTransient(status int) bool {
	return status == 429 || status == 529 || status >= 500
}
