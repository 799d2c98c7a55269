package index

import (
	"fmt"
	"strings"
)

// FormatMatches renders matches as human-readable text.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return "No passages found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d passage(s):\n\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "--- Passage %d (chunk %d, similarity: %.4f) ---\n", i+1, m.Position, m.Similarity)
		sb.WriteString(m.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
