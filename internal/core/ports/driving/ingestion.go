package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// IngestionService chunks, embeds and indexes documents into a session.
type IngestionService interface {
	// Ingest appends doc to the session, creating the session if needed.
	Ingest(ctx context.Context, sessionID string, doc *domain.ParsedDocument) (*domain.IngestResult, error)

	// IngestRaw normalises raw bytes and ingests the result.
	IngestRaw(ctx context.Context, sessionID string, raw *domain.RawDocument) (*domain.IngestResult, error)
}
