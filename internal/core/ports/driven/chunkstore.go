package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// ChunkStore holds a session's chunks in insertion order.
// Position i in the store corresponds to position i in the session's VectorIndex.
type ChunkStore interface {
	// Append adds chunks and returns the position of the first one.
	Append(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Get returns the chunk at position, or domain.ErrNotFound.
	Get(ctx context.Context, position int) (*domain.Chunk, error)

	// Len returns the number of stored chunks.
	Len() int

	// Close releases resources. Later calls fail with domain.ErrSessionClosed.
	Close() error
}

// ChunkStoreFactory builds a fresh store for a new session.
type ChunkStoreFactory func() (ChunkStore, error)
