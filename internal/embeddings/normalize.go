package embeddings

import (
	"context"
	"math"
)

// normalized wraps an Embedder so that every returned vector has unit
// length. Zero vectors are returned unchanged.
type normalized struct {
	Embedder
}

// Normalize wraps e so its vectors are scaled to unit length. Wrapping an
// already-normalized embedder is a no-op.
func Normalize(e Embedder) Embedder {
	if _, ok := e.(normalized); ok {
		return e
	}
	return normalized{Embedder: e}
}

func (n normalized) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := n.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	for _, v := range vecs {
		unit(v)
	}
	return vecs, nil
}

// unit scales v in place to length 1.
func unit(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}
