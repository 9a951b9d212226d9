package driven

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// Normaliser transforms raw documents into paragraphs and tables.
// Each normaliser handles specific MIME types (e.g., Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	Priority() int

	// Normalise transforms a raw document into a parsed document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error)
}

// NormaliserRegistry selects a normaliser by MIME type.
type NormaliserRegistry interface {
	// Register adds a normaliser.
	Register(n Normaliser)

	// Get returns the highest priority normaliser for mimeType.
	Get(mimeType string) (Normaliser, error)

	// SupportedMIMETypes lists every registered MIME type.
	SupportedMIMETypes() []string
}
