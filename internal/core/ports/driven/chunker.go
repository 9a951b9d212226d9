package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Chunker splits a parsed document into chunks.
// Chunks are returned with Content, DocumentID, Index and Metadata set.
type Chunker interface {
	// Name returns the unique identifier for this chunker.
	Name() string

	// Chunk splits doc. An empty document yields no chunks and no error.
	Chunk(ctx context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error)
}
