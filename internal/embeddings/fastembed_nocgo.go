//go:build !cgo

package embeddings

import (
	"context"
	"errors"
)

// ErrFastEmbedNotAvailable is returned when the binary was built without cgo.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available (binary built without cgo; use the openai, ollama, google or hashing embedding provider)")

// FastEmbedder is a stub for non-cgo builds.
type FastEmbedder struct{}

// NewFastEmbedder always fails without cgo.
func NewFastEmbedder(_, _ string) (*FastEmbedder, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (e *FastEmbedder) Name() string { return "fastembed" }

func (e *FastEmbedder) Dimensions() int { return 0 }

func (e *FastEmbedder) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (e *FastEmbedder) Close() error { return nil }
