package index

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/chunker"
	"github.com/ziadkadry99/pdfchat/internal/embeddings"
)

// constantEmbedder maps every text to the same unit vector, so every chunk
// ties with every other.
type constantEmbedder struct{}

func (constantEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (constantEmbedder) Dimensions() int { return 3 }
func (constantEmbedder) Name() string    { return "constant" }

type failingEmbedder struct{ constantEmbedder }

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("backend down")
}

func newBuilder(t *testing.T, e embeddings.Embedder, size, overlap int) *Builder {
	t.Helper()
	c, err := chunker.New(size, overlap)
	require.NoError(t, err)
	return NewBuilder(c, e, nil)
}

func TestBuildAndQueryReturnsMinKN(t *testing.T) {
	b := newBuilder(t, embeddings.NewHashingEmbedder(128), 50, 10)
	text := strings.Repeat("solar energy panels convert light. ", 4) +
		strings.Repeat("baking bread needs flour and yeast. ", 4)

	ix, err := b.Build(context.Background(), "doc-1", text)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", ix.DocumentID())
	assert.WithinDuration(t, time.Now(), ix.BuiltAt(), time.Minute)
	require.Greater(t, ix.Len(), 2)

	q, err := embeddings.Single(context.Background(), b.Embedder(), "flour and yeast for bread")
	require.NoError(t, err)

	matches, err := ix.Query(context.Background(), q, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)

	all, err := ix.Query(context.Background(), q, 1000)
	require.NoError(t, err)
	assert.Len(t, all, ix.Len())
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Similarity, all[i].Similarity)
	}
}

func TestQueryTiesKeepDocumentOrder(t *testing.T) {
	b := newBuilder(t, constantEmbedder{}, 10, 2)
	ix, err := b.Build(context.Background(), "doc-ties", strings.Repeat("abcdefghij", 6))
	require.NoError(t, err)

	matches, err := ix.Query(context.Background(), []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	for i, m := range matches {
		assert.Equal(t, i, m.Position)
	}

	again, err := ix.Query(context.Background(), []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, matches, again, "queries are deterministic")
}

func TestQueryNonPositiveK(t *testing.T) {
	b := newBuilder(t, constantEmbedder{}, 10, 2)
	ix, err := b.Build(context.Background(), "doc", "some text here")
	require.NoError(t, err)
	matches, err := ix.Query(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestQueryZeroVector(t *testing.T) {
	b := newBuilder(t, constantEmbedder{}, 10, 2)
	ix, err := b.Build(context.Background(), "doc", "some text here")
	require.NoError(t, err)
	_, err = ix.Query(context.Background(), []float32{0, 0, 0}, 1)
	assert.Error(t, err)
}

func TestBuildEmptyText(t *testing.T) {
	b := newBuilder(t, constantEmbedder{}, 10, 2)
	_, err := b.Build(context.Background(), "doc", "")
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
}

func TestBuildEmbeddingFailure(t *testing.T) {
	b := newBuilder(t, failingEmbedder{}, 10, 2)
	_, err := b.Build(context.Background(), "doc", "some text here")
	assert.ErrorIs(t, err, apperr.ErrIndexBuild)
	assert.ErrorContains(t, err, "backend down")
}

func TestTextsAndFormat(t *testing.T) {
	m := []Match{{Position: 3, Text: "b", Similarity: 0.9}, {Position: 1, Text: "a", Similarity: 0.5}}
	assert.Equal(t, []string{"b", "a"}, Texts(m))
	out := FormatMatches(m)
	assert.Contains(t, out, "Found 2 passage(s)")
	assert.Contains(t, out, "chunk 3")
	assert.Equal(t, "No passages found.", FormatMatches(nil))
}
