// Package memory provides a flat, exact inner-product vector index.
//
// Vectors are L2-normalised on insert, so inner product equals cosine
// similarity. Search is a linear scan; session-sized corpora are small.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an append-only flat index over normalised float32 vectors.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	closed    bool

	searches   int64
	insertTime time.Duration
	searchTime time.Duration
}

// New creates an index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("memory index: dimension %d: %w", dimension, domain.ErrInvalidConfig)
	}
	return &Index{dimension: dimension}, nil
}

// Factory returns a driven.VectorIndexFactory producing indexes of dimension.
func Factory(dimension int) driven.VectorIndexFactory {
	return func() (driven.VectorIndex, error) {
		return New(dimension)
	}
}

// Insert normalises a copy of vector and appends it.
func (x *Index) Insert(_ context.Context, vector []float32) (int, error) {
	if len(vector) != x.dimension {
		return 0, fmt.Errorf("memory index: got %d, want %d: %w",
			len(vector), x.dimension, domain.ErrDimensionMismatch)
	}
	normalised, ok := normalise(vector)
	if !ok {
		return 0, fmt.Errorf("memory index: zero vector: %w", domain.ErrInvalidInput)
	}

	start := time.Now()
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return 0, domain.ErrSessionClosed
	}
	x.vectors = append(x.vectors, normalised)
	x.insertTime += time.Since(start)
	return len(x.vectors) - 1, nil
}

// Search returns up to k hits ordered by descending score.
// Ties keep the lower position first.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("memory index: query got %d, want %d: %w",
			len(query), x.dimension, domain.ErrDimensionMismatch)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, ok := normalise(query)
	if !ok {
		return nil, fmt.Errorf("memory index: zero query vector: %w", domain.ErrInvalidInput)
	}

	start := time.Now()
	x.mu.RLock()
	if x.closed {
		x.mu.RUnlock()
		return nil, domain.ErrSessionClosed
	}
	hits := make([]driven.VectorHit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = driven.VectorHit{Position: i, Score: dot(v, q)}
	}
	x.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k < 0 {
		k = 0
	}
	if k < len(hits) {
		hits = hits[:k]
	}

	x.mu.Lock()
	x.searches++
	x.searchTime += time.Since(start)
	x.mu.Unlock()

	return hits, nil
}

// Size returns the number of stored vectors.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension returns the fixed vector length.
func (x *Index) Dimension() int {
	return x.dimension
}

// Stats returns activity counters.
func (x *Index) Stats() domain.IndexStats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return domain.IndexStats{
		Dimension:  x.dimension,
		Vectors:    len(x.vectors),
		Searches:   x.searches,
		InsertTime: x.insertTime,
		SearchTime: x.searchTime,
	}
}

// Close drops all vectors. It is safe to call more than once.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.vectors = nil
	return nil
}

func normalise(v []float32) ([]float32, bool) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, false
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out, true
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
