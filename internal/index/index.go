// Package index holds the per-document similarity index used for
// retrieval. An Index is immutable once built.
package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
	"github.com/ziadkadry99/pdfchat/internal/chunker"
	"github.com/ziadkadry99/pdfchat/internal/embeddings"
	"github.com/ziadkadry99/pdfchat/internal/logging"
	"github.com/ziadkadry99/pdfchat/internal/metrics"
)

const positionKey = "position"

// Match is one retrieved chunk.
type Match struct {
	Position   int
	Text       string
	Similarity float32
}

// Index is the set of (chunk, vector) pairs of exactly one document.
type Index struct {
	docID      string
	collection *chromem.Collection
	size       int
	builtAt    time.Time
}

// DocumentID returns the id of the document the index was built from.
func (ix *Index) DocumentID() string { return ix.docID }

// Len returns the number of chunks in the index.
func (ix *Index) Len() int { return ix.size }

// BuiltAt returns when the index was built.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }

// Query returns the min(k, Len()) chunks most similar to vec, in descending
// similarity. Equal scores keep document order.
func (ix *Index) Query(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if k <= 0 || ix.size == 0 {
		return nil, nil
	}
	if zeroVector(vec) {
		return nil, fmt.Errorf("query vector has zero length")
	}

	// chromem-go requires nResults <= collection size; rank everything so the
	// tie-break below is applied over the full set.
	results, err := ix.collection.QueryEmbedding(ctx, vec, ix.size, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		pos, err := strconv.Atoi(r.Metadata[positionKey])
		if err != nil {
			return nil, fmt.Errorf("chunk %s has no position: %w", r.ID, err)
		}
		matches[i] = Match{Position: pos, Text: r.Content, Similarity: r.Similarity}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Position < matches[j].Position
	})

	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Texts returns the chunk texts of matches in order.
func Texts(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Text
	}
	return out
}

// Builder turns document text into an Index.
type Builder struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewBuilder returns a Builder using c to split text and e to embed chunks.
func NewBuilder(c *chunker.Chunker, e embeddings.Embedder, logger *zap.Logger) *Builder {
	return &Builder{chunker: c, embedder: e, logger: logging.OrNop(logger)}
}

// Embedder returns the embedder used for chunks, which questions must share.
func (b *Builder) Embedder() embeddings.Embedder { return b.embedder }

// Build chunks text, embeds every chunk in one call and stores the pairs.
// All failures are reported as apperr.ErrIndexBuild.
func (b *Builder) Build(ctx context.Context, docID, text string) (ix *Index, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveIndexBuild(err, time.Since(start))
	}()

	chunks := b.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s has no text", apperr.ErrIndexBuild, docID)
	}

	vecs, err := b.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d chunks: %v", apperr.ErrIndexBuild, len(chunks), err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", apperr.ErrIndexBuild, len(vecs), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if zeroVector(vecs[i]) {
			return nil, fmt.Errorf("%w: chunk %d embedded to a zero vector", apperr.ErrIndexBuild, i)
		}
		docs[i] = chromem.Document{
			ID:        docID + ":" + strconv.Itoa(i),
			Content:   chunk,
			Embedding: vecs[i],
			Metadata:  map[string]string{positionKey: strconv.Itoa(i)},
		}
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(docID, nil, embeddings.ToChromemFunc(b.embedder))
	if err != nil {
		return nil, fmt.Errorf("%w: create collection: %v", apperr.ErrIndexBuild, err)
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("%w: add chunks: %v", apperr.ErrIndexBuild, err)
	}

	b.logger.Debug("index built",
		zap.String("document_id", docID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))

	return &Index{docID: docID, collection: col, size: len(chunks), builtAt: time.Now()}, nil
}

func zeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
