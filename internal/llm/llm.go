package llm

import (
	"context"
	"errors"
)

// Client abstracts generative providers for call compliance analysis.
// Analyze returns the model's raw answer text; callers recover structure from it.
type Client interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm response empty")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Analyze returns ErrNotImplemented.
func (PlaceholderClient) Analyze(ctx context.Context, transcript string) (string, error) {
	_ = ctx
	_ = transcript
	return "", ErrNotImplemented
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, transcript string) (string, error)

// Analyze calls f.
func (f ClientFunc) Analyze(ctx context.Context, transcript string) (string, error) {
	return f(ctx, transcript)
}
