package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"smartkb/internal/adapter/retriever"
	"smartkb/internal/domain"
)

// Weights for the default fused score: lexical overlap outweighs the
// vector signal so embedding-only lookalikes cannot win.
const (
	weightVector  = 0.4
	weightKeyword = 0.6
)

type rankedResult struct {
	position int
	result   domain.SearchResult
}

// Search returns the topK chunks most relevant to query, ranked by the
// configured strategy. InvalidQuery and EmptyCorpus are expected
// conditions the caller maps to an empty response; a negative or zero
// topK is a caller bug.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", topK)
	}

	trimmed := strings.TrimSpace(query)
	runes := len([]rune(trimmed))
	if runes < 2 || runes > e.opts.MaxQueryRunes {
		return nil, domain.ErrInvalidQuery
	}
	if len(e.tokenizer.Tokenize(trimmed)) == 0 {
		return nil, domain.ErrInvalidQuery
	}

	documents, embeddings := e.snapshot()
	if len(documents) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	// Embed outside the lock; the snapshot stays valid regardless.
	vectors, err := e.embedder.Embed(ctx, []string{trimmed})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := retriever.Normalize(vectors[0])

	var ranked []rankedResult
	switch e.opts.Strategy {
	case StrategyRelevance:
		ranked, err = e.rankRelevance(ctx, queryVec, trimmed, documents, embeddings)
	default:
		ranked = e.rankWeighted(queryVec, trimmed, documents, embeddings)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.Score != ranked[j].result.Score {
			return ranked[i].result.Score > ranked[j].result.Score
		}
		return ranked[i].position < ranked[j].position
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]domain.SearchResult, 0, len(ranked))
	topTexts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		if e.opts.MinScore > 0 && r.result.Score < e.opts.MinScore {
			continue
		}
		results = append(results, r.result)
		topTexts = append(topTexts, r.result.Text)
	}

	e.logger.Debug("search complete",
		zap.String("query", trimmed),
		zap.String("strategy", string(e.opts.Strategy)),
		zap.Int("candidates", len(documents)),
		zap.Int("results", len(results)))

	// Feed the winners back into the keyword weights so importance
	// adapts slowly across queries.
	if len(topTexts) > 0 {
		e.lexical.RefreshImportance(trimmed, topTexts)
	}
	return results, nil
}

// rankWeighted is the default strategy: skip any chunk with zero
// keyword overlap, then require vector similarity, keyword match, and
// the fused score to each clear their thresholds. No vector-only
// matches survive.
func (e *Engine) rankWeighted(queryVec []float32, query string, documents []domain.Chunk, embeddings [][]float32) []rankedResult {
	var ranked []rankedResult
	for i, chunk := range documents {
		keywordMatch := e.lexical.KeywordMatch(query, chunk.Text)
		if keywordMatch == 0 {
			continue
		}

		vectorSim := retriever.Cosine(queryVec, embeddings[i])
		weighted := weightVector*vectorSim + weightKeyword*keywordMatch

		if vectorSim < e.opts.SimilarityThreshold ||
			keywordMatch < e.opts.KeywordThreshold ||
			weighted < e.opts.ScoreThreshold {
			continue
		}

		ranked = append(ranked, rankedResult{
			position: i,
			result: domain.SearchResult{
				Text:     chunk.Text,
				Score:    weighted,
				Metadata: chunk.Metadata.Clone(),
				Breakdown: domain.ScoreBreakdown{
					VectorSimilarity: vectorSim,
					KeywordMatch:     keywordMatch,
					WeightedScore:    weighted,
				},
			},
		})
	}
	return ranked
}

// rankRelevance runs the stricter combined scorer over the same
// keyword-gated candidate set, then applies the adaptive threshold
// derived from the surviving score distribution.
func (e *Engine) rankRelevance(ctx context.Context, queryVec []float32, query string, documents []domain.Chunk, embeddings [][]float32) ([]rankedResult, error) {
	var ranked []rankedResult
	var scores []float64
	for i, chunk := range documents {
		keywordMatch := e.lexical.KeywordMatch(query, chunk.Text)
		if keywordMatch == 0 {
			continue
		}

		score, breakdown, err := e.relevance.Score(ctx, queryVec, embeddings[i], query, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("score chunk %d: %w", i, err)
		}
		if score == 0 {
			continue
		}
		breakdown.KeywordMatch = keywordMatch

		scores = append(scores, score)
		ranked = append(ranked, rankedResult{
			position: i,
			result: domain.SearchResult{
				Text:      chunk.Text,
				Score:     score,
				Metadata:  chunk.Metadata.Clone(),
				Breakdown: breakdown,
			},
		})
	}

	threshold := retriever.AdaptiveThreshold(scores, e.opts.SimilarityThreshold)
	filtered := ranked[:0]
	for _, r := range ranked {
		if r.result.Score >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}
