package retriever

import (
	"context"
	"math"

	"smartkb/internal/domain"
)

// Relevance is the stricter combined scoring mode: vector similarity,
// keyword importance, and sentence coherence, each hard-gated before
// blending. A chunk that looks good on vectors alone but shares no
// vocabulary or sentence-level overlap with the query is excluded, not
// down-weighted.
type Relevance struct {
	lexical   *Lexical
	coherence *Coherence
}

const (
	minVectorSimilarity = 0.3
	minCoherence        = 0.3
	minCombinedScore    = 0.4
)

func NewRelevance(lexical *Lexical, coherence *Coherence) *Relevance {
	return &Relevance{lexical: lexical, coherence: coherence}
}

// Score computes the combined relevance of one chunk. The returned
// breakdown is always populated, even when a gate zeroes the score.
func (r *Relevance) Score(ctx context.Context, queryVec, docVec []float32, query, text string) (float64, domain.ScoreBreakdown, error) {
	vectorSim := Cosine(queryVec, docVec)
	keywordImp := r.lexical.KeywordImportance(query, text)
	coherence, err := r.coherence.Score(ctx, query, text)
	if err != nil {
		return 0, domain.ScoreBreakdown{}, err
	}

	breakdown := domain.ScoreBreakdown{
		VectorSimilarity:  vectorSim,
		KeywordImportance: keywordImp,
		SemanticCoherence: coherence,
	}

	if keywordImp == 0 || vectorSim < minVectorSimilarity || coherence < minCoherence {
		return 0, breakdown, nil
	}

	// Reweight when one signal dominates.
	var wVector, wKeyword, wCoherence float64
	switch {
	case keywordImp > 0.6:
		wVector, wKeyword, wCoherence = 0.3, 0.5, 0.2
	case coherence > 0.8:
		wVector, wKeyword, wCoherence = 0.4, 0.2, 0.4
	default:
		wVector, wKeyword, wCoherence = 0.4, 0.3, 0.3
	}

	combined := wVector*vectorSim + wKeyword*keywordImp + wCoherence*coherence
	if combined < minCombinedScore {
		return 0, breakdown, nil
	}
	breakdown.WeightedScore = combined
	return combined, breakdown, nil
}

// AdaptiveThreshold derives a per-query acceptance cutoff from the
// distribution of candidate scores. It never drops below floor, and
// never below the 0.4 combined-score minimum.
func AdaptiveThreshold(scores []float64, floor float64) float64 {
	var nonZero []float64
	for _, s := range scores {
		if s > 0 {
			nonZero = append(nonZero, s)
		}
	}
	if len(nonZero) == 0 {
		return floor
	}

	m := mean(nonZero)
	var std float64
	if len(nonZero) > 1 {
		var sum float64
		for _, s := range nonZero {
			d := s - m
			sum += d * d
		}
		std = math.Sqrt(sum / float64(len(nonZero)))
	}

	threshold := floor
	if stat := m - 0.5*std; stat > threshold {
		threshold = stat
	}
	if threshold < minCombinedScore {
		threshold = minCombinedScore
	}
	return threshold
}
