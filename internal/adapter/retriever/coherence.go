package retriever

import (
	"context"

	"smartkb/internal/adapter/analyzer"
	"smartkb/internal/port"
)

// Coherence re-scores a candidate at sentence granularity: how close
// the query sits to the chunk's leading sentences, and how well those
// sentences hang together.
type Coherence struct {
	embedder port.Embedder
}

const (
	// maxSentences caps the embedding work per candidate.
	maxSentences = 3

	// singleSentenceFloor is the query-similarity a lone sentence must
	// clear; multiSentenceFloor gates the mean over several sentences.
	singleSentenceFloor = 0.5
	multiSentenceFloor  = 0.4
)

func NewCoherence(embedder port.Embedder) *Coherence {
	return &Coherence{embedder: embedder}
}

// Score returns a coherence score in [0,1]. Texts whose sentences sit
// too far from the query are cut to 0 before any blending.
func (c *Coherence) Score(ctx context.Context, query, text string) (float64, error) {
	sentences := analyzer.SplitSentences(text)
	if len(sentences) == 0 {
		return 0, nil
	}
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}

	// One batch for the query and all sentences.
	vectors, err := c.embedder.Embed(ctx, append([]string{query}, sentences...))
	if err != nil {
		return 0, err
	}

	queryVec := Normalize(vectors[0])
	sentenceVecs := vectors[1:]

	querySims := make([]float64, len(sentenceVecs))
	var coherenceSum float64
	for i, vec := range sentenceVecs {
		querySims[i] = Cosine(queryVec, vec)
		if i > 0 {
			coherenceSum += Cosine(sentenceVecs[i-1], vec)
		}
	}

	meanQuerySim := mean(querySims)
	if len(sentenceVecs) < 2 {
		if meanQuerySim > singleSentenceFloor {
			return meanQuerySim, nil
		}
		return 0, nil
	}

	if meanQuerySim < multiSentenceFloor {
		return 0, nil
	}
	meanCoherence := coherenceSum / float64(len(sentenceVecs)-1)
	return 0.7*meanQuerySim + 0.3*meanCoherence, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
