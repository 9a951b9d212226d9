// Package plaintext provides the fallback Normaliser for plain text.
package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/x-log"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise splits text into paragraphs on blank lines. Text without any
// blank line is read as one paragraph per line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.ParsedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.ParsedDocument{
		URI:        raw.URI,
		Title:      textclean.Title(raw.Metadata, raw.URI),
		Paragraphs: Paragraphs(string(raw.Content)),
		Metadata:   textclean.Metadata(raw.Metadata, raw.MIMEType, "text"),
	}, nil
}

// Paragraphs splits text into cleaned paragraphs.
func Paragraphs(text string) []domain.Paragraph {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []string
	if hasBlankLine(text) {
		blocks = strings.Split(text, "\n\n")
	} else {
		blocks = strings.Split(text, "\n")
	}

	paragraphs := make([]domain.Paragraph, 0, len(blocks))
	for _, block := range blocks {
		if cleaned := textclean.Clean(block); cleaned != "" {
			paragraphs = append(paragraphs, domain.Paragraph{Text: cleaned})
		}
	}
	return paragraphs
}

func hasBlankLine(text string) bool {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			return true
		}
	}
	return false
}
