// Package fs discovers ingestable documents on disk.
package fs

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker enumerates files under a root matching include globs and not
// matching exclude globs. Patterns use doublestar syntax and are
// evaluated against the path relative to the root.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Document is a discovered file. Source is the root-relative path in
// slash form and is what the engine records as chunk provenance.
type Document struct {
	Path   string
	Source string
	Size   int64
}

// Walk returns the matching documents under root. When root is a
// regular file it is returned directly with its base name as source.
func (w *Walker) Walk(root string) ([]Document, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return []Document{{Path: root, Source: filepath.Base(root), Size: stat.Size()}}, nil
	}

	var docs []Document
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if w.matchesAny(w.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.matchesAny(w.includes, rel) && !w.matchesAny(w.excludes, rel) {
			docs = append(docs, Document{Path: path, Source: rel, Size: info.Size()})
		}
		return nil
	})

	return docs, err
}

func (w *Walker) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ReadText reads a file and reports whether it looks like text. Files
// containing NUL bytes in the first 8 KiB are treated as binary and
// skipped by ingest.
func ReadText(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "", false, nil
	}
	return string(data), true, nil
}
