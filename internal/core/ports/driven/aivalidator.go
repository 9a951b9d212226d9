package driven

import "github.com/custodia-labs/clause/internal/core/domain"

// AIConfigValidator checks provider settings against the live service.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding service and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the query rewriter and pings it.
	ValidateLLM(config *domain.LLMSettings) error
}
