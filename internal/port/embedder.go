package port

import "context"

// Embedder maps text to fixed-dimension float vectors. Vectors are not
// guaranteed unit-norm; consumers computing cosine similarity must
// normalize explicitly.
type Embedder interface {
	// Embed encodes a batch of texts into one vector per text,
	// preserving order. It fails on empty or whitespace-only input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector length.
	Dimension() int

	// ModelName identifies the underlying model.
	ModelName() string
}
