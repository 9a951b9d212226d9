// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/clause/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/clause/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/clause/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/clause/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	QueryRewriter    driven.QueryRewriter // Nil when rewriting is disabled or unreachable.
	Warnings         []string             // Non-fatal issues that disabled the rewriter.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.QueryRewriter != nil {
		_ = r.QueryRewriter.Close()
	}
}

// Initialise creates the embedding service and the optional query rewriter.
// The embedding service is required and must answer a ping. A rewriter that
// cannot be created or reached is dropped with a warning, and retrieval
// falls back to the original query only.
func Initialise(ctx context.Context, settings *domain.AppSettings, prompts driven.PromptStore) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured. Run 'clause settings' to fix",
			domain.ErrEmbeddingUnavailable)
	}

	result := &InitResult{EmbeddingService: embedder}

	rewriter, err := CreateAndValidateQueryRewriter(ctx, &settings.LLM, prompts)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		logger.Warn("query rewriting disabled: %v", err)
		return result, nil
	}
	result.QueryRewriter = rewriter
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'clause settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'clause settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateQueryRewriter creates a query rewriter and validates connectivity.
// Returns nil without error when no rewriter provider is configured.
func CreateAndValidateQueryRewriter(
	ctx context.Context,
	settings *domain.LLMSettings,
	prompts driven.PromptStore,
) (driven.QueryRewriter, error) {
	svc, err := CreateQueryRewriter(settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRewriterUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrRewriterUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		svc, err := ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.ResolvedDimensions(),
			RequestsPerSecond: settings.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateQueryRewriter creates the appropriate query rewriter based on settings.
// Returns nil if the provider is not configured.
func CreateQueryRewriter(settings *domain.LLMSettings, prompts driven.PromptStore) (driven.QueryRewriter, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		r := ollamallm.NewRewriter(ollamallm.LLMConfig{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			MaxQueries:        settings.MaxQueries,
			RequestsPerSecond: settings.RequestsPerSecond,
		})
		r.SetPromptStore(prompts)
		return r, nil

	case domain.AIProviderOpenAI:
		r, err := openaillm.NewRewriter(openaillm.LLMConfig{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			MaxQueries:        settings.MaxQueries,
			RequestsPerSecond: settings.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		r.SetPromptStore(prompts)
		return r, nil

	default:
		return nil, fmt.Errorf("unsupported rewriter provider: %s", settings.Provider)
	}
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
