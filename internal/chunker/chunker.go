// Package chunker splits document text into fixed-size overlapping windows.
package chunker

import "fmt"

const (
	DefaultSize    = 1200
	DefaultOverlap = 200
)

// Chunker splits text into windows of at most Size characters, each sharing
// exactly Overlap characters with the previous one. Characters are Unicode
// code points, so multi-byte scripts are never cut mid-character.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker, rejecting sizes that would not make progress.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Default returns a Chunker with the 1200/200 defaults.
func Default() *Chunker {
	return &Chunker{size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the shared length between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the chunks of text in document order. Empty text yields no
// chunks; text no longer than Size yields exactly one.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, c.Count(n))
	for start := 0; ; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
	}
	return chunks
}

// Count returns how many chunks Split produces for a text of n characters.
func (c *Chunker) Count(n int) int {
	if n == 0 {
		return 0
	}
	if n <= c.size {
		return 1
	}
	step := c.size - c.overlap
	return (n - c.overlap + step - 1) / step
}

// Join reassembles chunks produced by Split with the same Chunker.
func (c *Chunker) Join(chunks []string) string {
	var out []rune
	for i, ch := range chunks {
		r := []rune(ch)
		if i > 0 {
			r = r[c.overlap:]
		}
		out = append(out, r...)
	}
	return string(out)
}
