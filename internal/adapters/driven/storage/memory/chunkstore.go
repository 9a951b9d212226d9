package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an append-only, in-memory implementation of driven.ChunkStore.
// A chunk's position is its index in the slice and never changes.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	closed bool
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

// Factory returns a driven.ChunkStoreFactory producing memory stores.
func Factory() driven.ChunkStoreFactory {
	return func() (driven.ChunkStore, error) {
		return NewChunkStore(), nil
	}
}

// Append adds chunks and returns the position of the first one.
func (s *ChunkStore) Append(_ context.Context, chunks []domain.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrSessionClosed
	}
	first := len(s.chunks)
	for i := range chunks {
		s.chunks = append(s.chunks, copyChunk(chunks[i]))
	}
	return first, nil
}

// Get returns the chunk at position.
func (s *ChunkStore) Get(_ context.Context, position int) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	if position < 0 || position >= len(s.chunks) {
		return nil, fmt.Errorf("chunk at position %d: %w", position, domain.ErrNotFound)
	}
	chunk := copyChunk(s.chunks[position])
	return &chunk, nil
}

// Len returns the number of stored chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Close drops all chunks. It is safe to call more than once.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.chunks = nil
	return nil
}

// copyChunk detaches the metadata map so callers cannot mutate stored chunks.
func copyChunk(c domain.Chunk) domain.Chunk {
	if c.Metadata != nil {
		meta := make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			meta[k] = v
		}
		c.Metadata = meta
	}
	return c
}
