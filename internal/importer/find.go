// Package importer loads PDF files from disk into a user's library, either
// once from glob patterns or continuously from a watched directory.
package importer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{
	".git",
	"node_modules",
	"vendor",
	".pdfchat",
	".venv",
	".idea",
	".vscode",
}

// File is one PDF discovered on disk.
type File struct {
	Path string
	Name string
	Size int64
}

// Find expands the glob patterns (doublestar syntax, so "docs/**/*.pdf"
// works) and returns the matching PDF files sorted by path. Files matching
// any exclude pattern, files under a default-excluded directory, and files
// larger than maxSize (when positive) are dropped.
func Find(patterns, exclude []string, maxSize int64) ([]File, error) {
	seen := make(map[string]bool)
	var files []File

	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		for _, path := range matches {
			abs, err := filepath.Abs(path)
			if err != nil || seen[abs] {
				continue
			}
			if !IsPDF(path) || inExcludedDir(path) || matchesAny(path, exclude) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if maxSize > 0 && info.Size() > maxSize {
				continue
			}
			seen[abs] = true
			files = append(files, File{Path: abs, Name: filepath.Base(path), Size: info.Size()})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// IsPDF reports whether the path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func inExcludedDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		for _, excl := range DefaultExcludes {
			if strings.EqualFold(part, excl) {
				return true
			}
		}
	}
	return false
}

// matchesAny checks the path, then its base name, against each pattern.
func matchesAny(path string, patterns []string) bool {
	normalized := filepath.ToSlash(path)
	base := filepath.Base(normalized)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.PathMatch(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// readFile reads a discovered file, refusing anything that is no longer a
// regular file.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrInvalid}
	}
	return os.ReadFile(path)
}
