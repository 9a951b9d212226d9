// Package fixed provides a sliding-window text chunker.
package fixed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/chunkers/tables"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// Name is the registry name of this chunker.
const Name = "fixed"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits document text into fixed-size, overlapping windows.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the fixed chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a fixed-size chunker.
// An overlap that is not smaller than the chunk size is rejected.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize <= 0 || c.overlap < 0 {
		return nil, fmt.Errorf("fixed chunker: size %d overlap %d: %w", c.chunkSize, c.overlap, domain.ErrInvalidConfig)
	}
	if c.chunkSize <= c.overlap {
		return nil, fmt.Errorf("fixed chunker: chunk size %d must exceed overlap %d: %w",
			c.chunkSize, c.overlap, domain.ErrInvalidConfig)
	}
	return c, nil
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return Name
}

// Chunk joins the paragraphs with blank lines and windows the result.
// Tables become one chunk each, after the text windows.
func (c *Chunker) Chunk(_ context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	var chunks []domain.Chunk
	for _, window := range c.windows(joinParagraphs(doc.Paragraphs)) {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      len(chunks),
			Content:    window,
			Metadata: map[string]any{
				domain.MetaChunkType: string(domain.ChunkTypeParagraph),
			},
			CreatedAt: now,
		})
	}
	return append(chunks, tables.Chunks(doc.ID, doc.Tables, len(chunks), now)...), nil
}

// windows slides over runes so multi-byte characters are never split.
func (c *Chunker) windows(content string) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+c.chunkSize, len(runes))
		if window := strings.TrimSpace(string(runes[start:end])); window != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func joinParagraphs(paragraphs []domain.Paragraph) string {
	texts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if text := strings.TrimSpace(p.Text); text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n\n")
}
