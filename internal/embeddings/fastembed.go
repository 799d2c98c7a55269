//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// fastembedModels maps accepted model names to fastembed models and their
// output dimensions.
var fastembedModels = map[string]struct {
	model fastembed.EmbeddingModel
	dims  int
}{
	"sentence-transformers/all-MiniLM-L6-v2": {fastembed.AllMiniLML6V2, 384},
	"BAAI/bge-small-en-v1.5":                 {fastembed.BGESmallENV15, 384},
	"BAAI/bge-base-en-v1.5":                  {fastembed.BGEBaseENV15, 768},
}

// FastEmbedder runs a sentence-transformer model locally through ONNX.
// Texts are embedded verbatim so chunks and questions share one space.
type FastEmbedder struct {
	mu    sync.Mutex
	model *fastembed.FlagEmbedding
	name  string
	dims  int
}

// NewFastEmbedder loads (downloading on first use) the named model into
// cacheDir, which defaults to ./local_cache.
func NewFastEmbedder(model, cacheDir string) (*FastEmbedder, error) {
	info, ok := fastembedModels[model]
	if !ok {
		return nil, fmt.Errorf("fastembed: unsupported model %q", model)
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "local_cache")
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                info.model,
		CacheDir:             cacheDir,
		MaxLength:            256,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing fastembed: %w", err)
	}

	return &FastEmbedder{model: flag, name: model, dims: info.dims}, nil
}

func (e *FastEmbedder) Name() string {
	return "fastembed/" + e.name
}

func (e *FastEmbedder) Dimensions() int {
	return e.dims
}

func (e *FastEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vecs, err := e.model.Embed(texts, 64)
	if err != nil {
		return nil, fmt.Errorf("fastembed: %w", err)
	}
	return vecs, nil
}

// Close releases the ONNX session.
func (e *FastEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	return err
}
