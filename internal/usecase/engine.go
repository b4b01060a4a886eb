package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"smartkb/internal/adapter/analyzer"
	"smartkb/internal/adapter/index"
	"smartkb/internal/adapter/retriever"
	"smartkb/internal/domain"
	"smartkb/internal/port"
)

// Strategy selects how candidates are ranked. The two strategies share
// the keyword-gated candidate set but are never mixed in one call.
type Strategy string

const (
	// StrategyWeighted is the default: 0.4·vector + 0.6·keyword with
	// hard gates on both signals.
	StrategyWeighted Strategy = "weighted"

	// StrategyRelevance is the stricter combined mode that adds
	// keyword importance and sentence coherence, with an adaptive
	// acceptance threshold.
	StrategyRelevance Strategy = "relevance"
)

// Options tunes the engine's acceptance thresholds.
type Options struct {
	// SimilarityThreshold is the vector-similarity floor. The
	// adaptive threshold never drops below it.
	SimilarityThreshold float64
	// KeywordThreshold is the minimum keyword match for acceptance.
	KeywordThreshold float64
	// ScoreThreshold is the minimum fused score for acceptance.
	ScoreThreshold float64
	// MinScore filters ranked results below this score (0 disables).
	MinScore float64
	// MaxQueryRunes caps query length.
	MaxQueryRunes int
	// Strategy picks the ranking mode.
	Strategy Strategy
	// InitAttempts bounds embedder initialization retries.
	InitAttempts int
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold: 0.3,
		KeywordThreshold:    0.3,
		ScoreThreshold:      0.4,
		MaxQueryRunes:       1000,
		Strategy:            StrategyWeighted,
		InitAttempts:        3,
	}
}

// initializer is implemented by embedders that need a reachability
// check before use.
type initializer interface {
	Initialize(ctx context.Context, attempts int) error
}

// Engine is the hybrid retrieval engine: it owns the corpus, the
// embedding matrix, and the vector index, and keeps them in lockstep
// through every mutation. One mutex guards all three; searches take a
// read lock only long enough to snapshot the state.
type Engine struct {
	embedder  port.Embedder
	tokenizer *analyzer.Tokenizer
	lexical   *retriever.Lexical
	coherence *retriever.Coherence
	relevance *retriever.Relevance
	opts      Options
	logger    *zap.Logger

	mu         sync.RWMutex
	documents  []domain.Chunk
	embeddings [][]float32
	index      *index.Flat
}

// NewEngine constructs an engine around an embedder. If the embedder
// requires initialization it is performed here, under the bounded
// retry policy; failure is fatal, there is no embedding-less fallback.
func NewEngine(ctx context.Context, embedder port.Embedder, opts Options, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyWeighted
	}
	if opts.InitAttempts <= 0 {
		opts.InitAttempts = 3
	}
	if opts.MaxQueryRunes <= 0 {
		opts.MaxQueryRunes = 1000
	}

	if init, ok := embedder.(initializer); ok {
		if err := init.Initialize(ctx, opts.InitAttempts); err != nil {
			return nil, err
		}
	}

	tokenizer := analyzer.NewTokenizer()
	lexical := retriever.NewLexical(tokenizer)
	coherence := retriever.NewCoherence(embedder)

	return &Engine{
		embedder:  embedder,
		tokenizer: tokenizer,
		lexical:   lexical,
		coherence: coherence,
		relevance: retriever.NewRelevance(lexical, coherence),
		opts:      opts,
		logger:    logger,
		index:     index.NewFlat(embedder.Dimension()),
	}, nil
}

// Statistics reports corpus and index sizes. Documents counts
// distinct metadata sources; chunks is the corpus length.
func (e *Engine) Statistics() domain.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	chunksBySource := make(map[string]int)
	for _, chunk := range e.documents {
		if src := chunk.Metadata.Source(); src != "" {
			chunksBySource[src]++
		}
	}

	stats := domain.Stats{
		TotalDocuments:  len(chunksBySource),
		TotalChunks:     len(e.documents),
		VectorDimension: e.embedder.Dimension(),
		IndexSize:       e.index.Size(),
	}
	for src, n := range chunksBySource {
		stats.Sources = append(stats.Sources, domain.SourceStat{Source: src, Chunks: n})
	}
	return stats
}

// snapshot returns the current corpus and matrix without copying.
// Mutations replace these slices instead of editing them in place, so
// a snapshot stays consistent after the lock is released.
func (e *Engine) snapshot() ([]domain.Chunk, [][]float32) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.documents, e.embeddings
}
