// Package semantic provides a context-aware chunker that groups
// consecutive paragraphs until a heading, a size limit, or a drop in
// embedding similarity marks a boundary.
package semantic

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/clause/internal/chunkers/tables"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
	"github.com/custodia-labs/clause/internal/normalisers/textclean"
)

// Name is the registry name of this chunker.
const Name = "semantic"

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultMinWords is the word count below which a chunk is merged into a neighbour.
const DefaultMinWords = 5

// DefaultHeadingMaxWords is the longest paragraph the heading heuristic considers.
const DefaultHeadingMaxWords = 8

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits paragraphs at headings, size limits and semantic breaks.
type Chunker struct {
	embedder        driven.EmbeddingService
	chunkSize       int
	minWords        int
	headingMaxWords int
}

// Option configures the semantic chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithMinWords sets the orphan merge threshold.
func WithMinWords(n int) Option {
	return func(c *Chunker) {
		c.minWords = n
	}
}

// WithHeadingMaxWords sets the word limit for structural headings.
func WithHeadingMaxWords(n int) Option {
	return func(c *Chunker) {
		c.headingMaxWords = n
	}
}

// New creates a semantic chunker that embeds paragraphs with embedder.
func New(embedder driven.EmbeddingService, opts ...Option) (*Chunker, error) {
	c := &Chunker{
		embedder:        embedder,
		chunkSize:       DefaultChunkSize,
		minWords:        DefaultMinWords,
		headingMaxWords: DefaultHeadingMaxWords,
	}
	for _, opt := range opts {
		opt(c)
	}

	if embedder == nil {
		return nil, fmt.Errorf("semantic chunker: embedding service required: %w", domain.ErrInvalidConfig)
	}
	if c.chunkSize <= 0 {
		return nil, fmt.Errorf("semantic chunker: chunk size %d: %w", c.chunkSize, domain.ErrInvalidConfig)
	}
	if c.minWords < 0 || c.headingMaxWords <= 0 {
		return nil, fmt.Errorf("semantic chunker: word limits: %w", domain.ErrInvalidConfig)
	}
	return c, nil
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return Name
}

// Chunk groups the document's paragraphs and appends one chunk per table.
func (c *Chunker) Chunk(ctx context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	groups, err := c.group(ctx, usable(doc.Paragraphs))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	chunks := make([]domain.Chunk, 0, len(groups)+len(doc.Tables))
	for _, text := range groups {
		content := textclean.Clean(text)
		if content == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      len(chunks),
			Content:    content,
			Metadata: map[string]any{
				domain.MetaChunkType: string(domain.ChunkTypeParagraph),
			},
			CreatedAt: now,
		})
	}
	chunks = append(chunks, tables.Chunks(doc.ID, doc.Tables, len(chunks), now)...)

	logger.Debug("semantic chunker: %d paragraphs, %d tables -> %d chunks",
		len(doc.Paragraphs), len(doc.Tables), len(chunks))
	return chunks, nil
}

// group returns the paragraph groups as joined text, before cleaning.
func (c *Chunker) group(ctx context.Context, paragraphs []domain.Paragraph) ([]string, error) {
	if len(paragraphs) == 0 {
		return nil, nil
	}

	splits := map[int]bool{}
	if len(paragraphs) > 1 {
		texts := make([]string, len(paragraphs))
		for i, p := range paragraphs {
			texts[i] = p.Text
		}
		embeddings, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("semantic chunker: embed paragraphs: %w", err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("semantic chunker: got %d embeddings for %d paragraphs",
				len(embeddings), len(texts))
		}
		splits = SplitPoints(Similarities(embeddings))
	}

	var (
		groups     []string
		current    []string
		currentLen int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		groups = append(groups, strings.Join(current, " "))
		current = current[:0]
		currentLen = 0
	}

	for i, p := range paragraphs {
		heading := p.IsHeading || IsStructuralHeading(p.Text, c.headingMaxWords)
		n := utf8.RuneCountInString(p.Text)
		if heading || currentLen+n > c.chunkSize {
			flush()
		}
		current = append(current, p.Text)
		currentLen += n
		if splits[i] {
			flush()
		}
	}
	flush()

	return MergeOrphans(groups, c.minWords), nil
}

// usable drops paragraphs that are blank after cleaning.
func usable(paragraphs []domain.Paragraph) []domain.Paragraph {
	out := make([]domain.Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		text := textclean.Clean(p.Text)
		if text == "" {
			continue
		}
		out = append(out, domain.Paragraph{Text: text, IsHeading: p.IsHeading})
	}
	return out
}
