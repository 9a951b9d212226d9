package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// VectorIndex is an append-only similarity index.
// Vectors have no identity beyond their insertion position.
type VectorIndex interface {
	// Insert normalises and appends a vector, returning its position.
	// A vector of the wrong length fails with domain.ErrDimensionMismatch.
	Insert(ctx context.Context, vector []float32) (int, error)

	// Search returns up to k hits in descending score order.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Size returns the number of stored vectors.
	Size() int

	// Dimension returns the fixed vector length.
	Dimension() int

	// Stats returns activity counters.
	Stats() domain.IndexStats

	// Close releases resources. Later calls fail with domain.ErrSessionClosed.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Position is the insertion position. -1 marks an empty slot.
	Position int

	// Score is the inner product of normalised vectors (cosine similarity).
	Score float32
}

// VectorIndexFactory builds a fresh index for a new session.
type VectorIndexFactory func() (VectorIndex, error)
