package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or query rewriting.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkerStrategy selects how documents are split into chunks.
type ChunkerStrategy string

// Available chunker strategies.
const (
	// ChunkerSemantic groups paragraphs by embedding similarity and headings.
	ChunkerSemantic ChunkerStrategy = "semantic"

	// ChunkerFixed slides a fixed-size character window.
	ChunkerFixed ChunkerStrategy = "fixed"
)

// IsValid returns true if the strategy is recognised.
func (s ChunkerStrategy) IsValid() bool {
	return s == ChunkerSemantic || s == ChunkerFixed
}

// ChunkerSettings holds chunking configuration.
type ChunkerSettings struct {
	Strategy        ChunkerStrategy `validate:"oneof=semantic fixed"`
	ChunkSize       int             `validate:"gt=0"`
	ChunkOverlap    int             `validate:"gte=0"`
	MinWords        int             `validate:"gte=0"`
	HeadingMaxWords int             `validate:"gt=0"`
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider `validate:"oneof=ollama openai"`

	// Model is the embedding model name.
	Model string `validate:"required"`

	// BaseURL is the API endpoint.
	BaseURL string `validate:"omitempty,url"`

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known vector length.
	Dimensions int `validate:"gte=0"`

	// RequestsPerSecond throttles provider calls. Zero is unlimited.
	RequestsPerSecond float64 `validate:"gte=0"`
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns the configured dimension, or the known
// dimension of the model, or zero when neither is available.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// LLMSettings holds query-rewriter provider configuration.
// An empty Provider disables rewriting.
type LLMSettings struct {
	Provider          AIProvider `validate:"omitempty,oneof=ollama openai"`
	Model             string
	BaseURL           string  `validate:"omitempty,url"`
	APIKey            string
	MaxQueries        int     `validate:"gte=1,lte=10"`
	RequestsPerSecond float64 `validate:"gte=0"`
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// SessionSettings holds session lifecycle configuration.
type SessionSettings struct {
	TTL             time.Duration `validate:"gt=0"`
	CleanupInterval time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// RetrievalSettings holds retrieval defaults.
type RetrievalSettings struct {
	TopK            int           `validate:"gt=0"`
	DynamicK        bool
	Threshold       float32       `validate:"gte=-1,lte=1"`
	ProviderTimeout time.Duration `validate:"gt=0"`
	MaxConcurrency  int           `validate:"gt=0"`
}

// Options returns the default retrieval options.
func (r RetrievalSettings) Options() RetrievalOptions {
	return RetrievalOptions{TopK: r.TopK, DynamicK: r.DynamicK, Threshold: r.Threshold}
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunker   ChunkerSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Session   SessionSettings
	Retrieval RetrievalSettings
}

// DefaultAppSettings returns the default application settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunker: ChunkerSettings{
			Strategy:        ChunkerSemantic,
			ChunkSize:       1000,
			ChunkOverlap:    200,
			MinWords:        5,
			HeadingMaxWords: 8,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		// Rewriting is off until a provider is configured.
		LLM: LLMSettings{MaxQueries: 3},
		Session: SessionSettings{
			TTL:             120 * time.Minute,
			CleanupInterval: 10 * time.Minute,
			ShutdownTimeout: 5 * time.Second,
		},
		Retrieval: RetrievalSettings{
			TopK:            5,
			ProviderTimeout: 30 * time.Second,
			MaxConcurrency:  4,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each rewriter provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		"bge-m3":            1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
