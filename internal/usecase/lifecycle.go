package usecase

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"smartkb/internal/adapter/index"
	"smartkb/internal/adapter/store"
	"smartkb/internal/domain"
)

// SidecarPath returns the documents+embeddings file for a store path.
func SidecarPath(path string) string { return path + ".db" }

// IndexPath returns the serialized vector index file for a store path.
func IndexPath(path string) string { return path + ".index" }

// Add embeds texts in one batch and appends them to the corpus, the
// embedding matrix, and the index together. Empty texts are dropped;
// metadata stays aligned with its text by position. A failed embedding
// batch commits nothing: the whole call fails soft and is retryable.
func (e *Engine) Add(ctx context.Context, texts []string, metadata []domain.Metadata) bool {
	var chunks []domain.Chunk
	var valid []string
	for i, text := range texts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		var meta domain.Metadata
		if i < len(metadata) {
			meta = metadata[i].Clone()
		}
		chunks = append(chunks, domain.Chunk{Text: trimmed, Metadata: meta})
		valid = append(valid, trimmed)
	}
	if len(valid) == 0 {
		e.logger.Warn("add skipped: no non-empty texts")
		return false
	}

	vectors, err := e.embedder.Embed(ctx, valid)
	if err != nil {
		e.logger.Error("add failed: embedding batch", zap.Error(err))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.documents)
	e.documents = append(e.documents, chunks...)
	e.embeddings = append(e.embeddings, vectors...)
	if err := e.index.Add(vectors); err != nil {
		e.documents = e.documents[:before]
		e.embeddings = e.embeddings[:before]
		e.logger.Error("add failed: index append", zap.Error(err))
		return false
	}

	e.logger.Info("chunks added", zap.Int("count", len(chunks)), zap.Int("total", len(e.documents)))
	return true
}

// DeleteDocument removes every chunk whose metadata source equals
// path. Deleting an unknown source is a no-op success.
func (e *Engine) DeleteDocument(source string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	keep := func(chunk domain.Chunk) bool { return chunk.Metadata.Source() != source }
	removed, ok := e.compact(keep)
	if !ok {
		return false
	}
	e.logger.Info("document deleted", zap.String("source", source), zap.Int("chunks_removed", removed))
	return true
}

// DeleteChunks removes the chunks at the given positions. Positions
// are interpreted against the current corpus snapshot; out-of-range
// positions fail the whole call.
func (e *Engine) DeleteChunks(positions []int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(positions) == 0 {
		return true
	}
	doomed := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		if pos < 0 || pos >= len(e.documents) {
			e.logger.Error("delete failed: position out of range",
				zap.Int("position", pos), zap.Int("corpus", len(e.documents)))
			return false
		}
		doomed[pos] = struct{}{}
	}

	i := -1
	keep := func(domain.Chunk) bool {
		i++
		_, gone := doomed[i]
		return !gone
	}
	removed, ok := e.compact(keep)
	if !ok {
		return false
	}
	e.logger.Info("chunks deleted", zap.Int("count", removed), zap.Int("remaining", len(e.documents)))
	return true
}

// compact rebuilds the corpus, matrix, and index keeping only chunks
// that satisfy keep. Caller holds the write lock. New slices are
// allocated so in-flight search snapshots stay intact.
func (e *Engine) compact(keep func(domain.Chunk) bool) (removed int, ok bool) {
	newDocs := make([]domain.Chunk, 0, len(e.documents))
	newEmbeddings := make([][]float32, 0, len(e.embeddings))
	for i, chunk := range e.documents {
		if keep(chunk) {
			newDocs = append(newDocs, chunk)
			newEmbeddings = append(newEmbeddings, e.embeddings[i])
		}
	}
	removed = len(e.documents) - len(newDocs)

	newIndex := index.NewFlat(e.index.Dimension())
	if err := newIndex.Rebuild(newEmbeddings); err != nil {
		e.logger.Error("compact failed: index rebuild", zap.Error(err))
		return 0, false
	}

	e.documents = newDocs
	e.embeddings = newEmbeddings
	e.index = newIndex
	return removed, true
}

// UpdateChunk replaces the text at position, re-embeds only that
// chunk, and rebuilds the index. Metadata is preserved.
func (e *Engine) UpdateChunk(ctx context.Context, position int, newText string) bool {
	trimmed := strings.TrimSpace(newText)
	if trimmed == "" {
		e.logger.Error("update failed: empty replacement text", zap.Int("position", position))
		return false
	}

	vectors, err := e.embedder.Embed(ctx, []string{trimmed})
	if err != nil {
		e.logger.Error("update failed: embedding", zap.Int("position", position), zap.Error(err))
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if position < 0 || position >= len(e.documents) {
		e.logger.Error("update failed: position out of range",
			zap.Int("position", position), zap.Int("corpus", len(e.documents)))
		return false
	}

	newDocs := append([]domain.Chunk(nil), e.documents...)
	newDocs[position] = domain.Chunk{Text: trimmed, Metadata: e.documents[position].Metadata}
	newEmbeddings := append([][]float32(nil), e.embeddings...)
	newEmbeddings[position] = vectors[0]

	newIndex := index.NewFlat(e.index.Dimension())
	if err := newIndex.Rebuild(newEmbeddings); err != nil {
		e.logger.Error("update failed: index rebuild", zap.Error(err))
		return false
	}

	e.documents = newDocs
	e.embeddings = newEmbeddings
	e.index = newIndex
	e.logger.Info("chunk updated", zap.Int("position", position))
	return true
}

// Save persists the index and the sidecar next to each other at
// <path>.index and <path>.db.
func (e *Engine) Save(path string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.index.WriteFile(IndexPath(path)); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := store.Save(SidecarPath(path), e.documents, e.embeddings); err != nil {
		return fmt.Errorf("save sidecar: %w", err)
	}
	e.logger.Info("store saved", zap.String("path", path), zap.Int("chunks", len(e.documents)))
	return nil
}

// Load restores the engine state from disk. The sidecar is the system
// of record: a corrupt, missing, or mismatched index file is rebuilt
// from the embedding matrix rather than failing the load. A legacy
// sidecar (no stored embeddings) is upgraded by re-embedding every
// record. A missing sidecar on first run is a no-op.
func (e *Engine) Load(ctx context.Context, path string) error {
	snap, err := store.Load(SidecarPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			e.logger.Info("no persisted store, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("load sidecar: %w", err)
	}

	embeddings := snap.Embeddings
	dimension := e.embedder.Dimension()

	// Stored vectors from a different model are as unusable as none.
	needsEmbed := snap.Legacy
	if !needsEmbed && len(embeddings) > 0 && len(embeddings[0]) != dimension {
		e.logger.Warn("stored embedding dimension differs, re-embedding corpus",
			zap.Int("stored", len(embeddings[0])), zap.Int("expected", dimension))
		needsEmbed = true
	}

	documents := snap.Documents
	if needsEmbed && len(documents) > 0 {
		texts := make([]string, len(documents))
		for i, chunk := range documents {
			texts[i] = chunk.Text
		}
		embeddings, err = e.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("re-embed legacy sidecar: %w", err)
		}
	}

	idx, idxErr := index.ReadFile(IndexPath(path), dimension)
	if idxErr != nil || idx.Size() != len(documents) {
		if idxErr != nil {
			e.logger.Warn("persisted index unusable, rebuilding from embeddings", zap.Error(idxErr))
		} else {
			e.logger.Warn("persisted index size mismatch, rebuilding from embeddings",
				zap.Int("index", idx.Size()), zap.Int("corpus", len(documents)))
		}
		idx = index.NewFlat(dimension)
		if err := idx.Rebuild(embeddings); err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
	}

	e.mu.Lock()
	e.documents = documents
	e.embeddings = embeddings
	e.index = idx
	e.mu.Unlock()

	e.logger.Info("store loaded",
		zap.String("path", path),
		zap.Int("chunks", len(documents)),
		zap.Bool("upgraded", needsEmbed))
	return nil
}
