package embeddings

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

const defaultHashingDims = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}][\p{L}\p{M}\p{N}]*|\p{N}+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these",
		"those", "from", "into", "about", "so", "can", "will", "just", "do", "does", "what", "which",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// HashingEmbedder maps text to a fixed-size vector by hashing word unigrams
// and bigrams into signed buckets. It needs no model or network and is
// fully deterministic, which makes it the backend for development and tests.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder returns a HashingEmbedder with dims buckets
// (384 when dims <= 0).
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = defaultHashingDims
	}
	return &HashingEmbedder{dims: dims}
}

func (e *HashingEmbedder) Name() string {
	return "hashing"
}

func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	vec := make([]float32, e.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	if len(tokens) == 0 {
		for _, r := range text {
			e.add(vec, string(r), 1)
		}
	}
	if isZero(vec) {
		vec[0] = 1
	}
	unit(vec)
	return vec
}

func (e *HashingEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
