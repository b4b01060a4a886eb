package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"smartkb/internal/domain"
)

// Mock is a deterministic offline embedder for tests: each rune is
// hashed into a dimension bucket, so texts sharing vocabulary produce
// vectors with high cosine similarity.
type Mock struct {
	dimension int
}

func NewMock(dimension int) *Mock {
	return &Mock{dimension: dimension}
}

func (m *Mock) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: input %d", domain.ErrEmptyText, i)
		}
		vec := make([]float32, m.dimension)
		for _, r := range text {
			h := fnv.New32a()
			var buf [4]byte
			buf[0] = byte(r)
			buf[1] = byte(r >> 8)
			buf[2] = byte(r >> 16)
			buf[3] = byte(r >> 24)
			h.Write(buf[:])
			vec[int(h.Sum32())%m.dimension]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (m *Mock) Dimension() int    { return m.dimension }
func (m *Mock) ModelName() string { return "mock" }
