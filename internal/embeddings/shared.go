package embeddings

import (
	"context"
	"sync"
)

// Shared is a process-wide Embedder whose backend is created on first use.
// Concurrent first callers block on the single initialization; if it fails
// every caller gets the same error.
type Shared struct {
	once    sync.Once
	factory func() (Embedder, error)
	inner   Embedder
	err     error
	name    string
	dims    int
}

// Lazy returns a Shared embedder that calls factory at most once. name and
// dims are reported before initialization so callers can log and size
// without forcing a model load.
func Lazy(name string, dims int, factory func() (Embedder, error)) *Shared {
	return &Shared{factory: factory, name: name, dims: dims}
}

// Get initializes the backend if needed and returns it.
func (s *Shared) Get() (Embedder, error) {
	s.once.Do(func() {
		e, err := s.factory()
		if err != nil {
			s.err = err
			return
		}
		s.inner = Normalize(e)
	})
	return s.inner, s.err
}

func (s *Shared) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := s.Get()
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, texts)
}

func (s *Shared) Dimensions() int {
	return s.dims
}

func (s *Shared) Name() string {
	return s.name
}

// Close releases the backend if it holds native resources. Call it only
// after all users of the embedder have stopped.
func (s *Shared) Close() error {
	if s.inner == nil {
		return nil
	}
	if n, ok := s.inner.(normalized); ok {
		if c, ok := n.Embedder.(interface{ Close() error }); ok {
			return c.Close()
		}
	}
	return nil
}
