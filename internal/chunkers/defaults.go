package chunkers

import (
	"github.com/custodia-labs/clause/internal/chunkers/fixed"
	"github.com/custodia-labs/clause/internal/chunkers/semantic"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// RegisterDefaults registers all built-in chunkers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(semantic.Name, buildSemantic)
	r.Register(fixed.Name, buildFixed)
}

// NewDefault builds the chunker named by settings.Strategy from the
// built-in set.
func NewDefault(settings domain.ChunkerSettings, embedder driven.EmbeddingService) (driven.Chunker, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Build(string(settings.Strategy), settings, embedder)
}

// buildSemantic creates the semantic chunker.
// Zero-valued settings fall back to the chunker's defaults.
func buildSemantic(settings domain.ChunkerSettings, embedder driven.EmbeddingService) (driven.Chunker, error) {
	var opts []semantic.Option
	if settings.ChunkSize > 0 {
		opts = append(opts, semantic.WithChunkSize(settings.ChunkSize))
	}
	if settings.MinWords > 0 {
		opts = append(opts, semantic.WithMinWords(settings.MinWords))
	}
	if settings.HeadingMaxWords > 0 {
		opts = append(opts, semantic.WithHeadingMaxWords(settings.HeadingMaxWords))
	}
	c, err := semantic.New(embedder, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// buildFixed creates the fixed-size chunker.
// Size and overlap are passed through so invalid pairs are reported.
func buildFixed(settings domain.ChunkerSettings, _ driven.EmbeddingService) (driven.Chunker, error) {
	var opts []fixed.Option
	if settings.ChunkSize != 0 {
		opts = append(opts, fixed.WithChunkSize(settings.ChunkSize))
	}
	opts = append(opts, fixed.WithOverlap(settings.ChunkOverlap))
	c, err := fixed.New(opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
