package domain

// Chunk is one retrievable unit of text plus its metadata.
// Chunks are immutable once stored except through an explicit update,
// which replaces the text and its embedding together.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// ScoreBreakdown carries the component scores behind a search result.
// It is part of the result contract, not optional logging: callers use
// it to explain why a chunk was returned.
type ScoreBreakdown struct {
	VectorSimilarity  float64 `json:"vector_similarity"`
	KeywordMatch      float64 `json:"keyword_match"`
	WeightedScore     float64 `json:"weighted_score"`
	KeywordImportance float64 `json:"keyword_importance,omitempty"`
	SemanticCoherence float64 `json:"semantic_coherence,omitempty"`
}

// SearchResult is one ranked hit from the engine.
type SearchResult struct {
	Text      string         `json:"text"`
	Score     float64        `json:"score"`
	Metadata  Metadata       `json:"metadata,omitempty"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// SourceStat is the chunk count for one originating file.
type SourceStat struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// Stats summarizes the engine state. TotalDocuments counts distinct
// metadata sources; TotalChunks is the corpus length.
type Stats struct {
	TotalDocuments  int          `json:"total_documents"`
	TotalChunks     int          `json:"total_chunks"`
	VectorDimension int          `json:"vector_dimension"`
	IndexSize       int          `json:"index_size"`
	Sources         []SourceStat `json:"documents,omitempty"`
}
