package index

import (
	"fmt"
	"math"
	"sort"
)

// Flat is an exact nearest-neighbor index over squared Euclidean
// distance. It is brute force on purpose: the corpus is small, and an
// exact index is always rebuildable from the embedding matrix, which
// stays the system of record.
type Flat struct {
	dimension int
	vectors   [][]float32
}

// Neighbor is one distance query hit.
type Neighbor struct {
	Position int
	Distance float64
}

func NewFlat(dimension int) *Flat {
	return &Flat{dimension: dimension}
}

// Add appends vectors to the index.
func (f *Flat) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", f.dimension, len(v))
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Rebuild replaces the index contents wholesale. Used after deletes
// and updates, which have no in-place mutation on an exact index.
func (f *Flat) Rebuild(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", f.dimension, len(v))
		}
	}
	f.vectors = append([][]float32(nil), vectors...)
	return nil
}

// Search returns up to k positions ordered ascending by squared L2
// distance to query. An empty index yields an empty result, never an
// error.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if len(f.vectors) == 0 {
		return nil, nil
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", f.dimension, len(query))
	}

	neighbors := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		neighbors[i] = Neighbor{Position: i, Distance: squaredL2(query, v)}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].Position < neighbors[j].Position
	})

	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

func (f *Flat) Size() int      { return len(f.vectors) }
func (f *Flat) Dimension() int { return f.dimension }

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Similarity converts a squared L2 distance into a bounded score in
// (0,1] using a Gaussian kernel. Larger sigma flattens the decay so
// moderately distant vectors keep a usable score.
func Similarity(distance, sigma float64) float64 {
	return math.Exp(-distance / (2.0 * sigma * sigma))
}

// DefaultSigma is the kernel smoothing constant for Similarity.
const DefaultSigma = 4.0
