package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkerStrategy   = "chunker.strategy"
	keyChunkSize         = "chunker.chunk_size"
	keyChunkOverlap      = "chunker.chunk_overlap"
	keyChunkMinWords     = "chunker.min_words"
	keyHeadingMaxWords   = "chunker.heading_max_words"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDims         = "embedding.dimensions"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMMaxQueries     = "llm.max_queries"
	keyLLMRPS            = "llm.requests_per_second"
	keySessionTTL        = "session.ttl_minutes"
	keySessionCleanup    = "session.cleanup_interval_minutes"
	keySessionShutdown   = "session.shutdown_timeout_seconds"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalDynamicK = "retrieval.dynamic_k"
	keyRetrievalThresh   = "retrieval.threshold"
	keyRetrievalTimeout  = "retrieval.provider_timeout_seconds"
	keyRetrievalWorkers  = "retrieval.max_concurrency"

	// envOpenAIKey supplies the OpenAI key when the config file has none.
	envOpenAIKey = "OPENAI_API_KEY"
)

var validate = validator.New()

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// aiValidator may be nil, in which case provider pings are skipped.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings with defaults applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunker: domain.ChunkerSettings{
			Strategy:        s.getStrategy(defaults.Chunker.Strategy),
			ChunkSize:       s.getInt(keyChunkSize, defaults.Chunker.ChunkSize),
			ChunkOverlap:    s.getIntAllowZero(keyChunkOverlap, defaults.Chunker.ChunkOverlap),
			MinWords:        s.getIntAllowZero(keyChunkMinWords, defaults.Chunker.MinWords),
			HeadingMaxWords: s.getInt(keyHeadingMaxWords, defaults.Chunker.HeadingMaxWords),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDims),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
		},
		LLM: domain.LLMSettings{
			Provider:          s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:             s.configStore.GetString(keyLLMModel),
			BaseURL:           s.configStore.GetString(keyLLMBaseURL),
			APIKey:            s.configStore.GetString(keyLLMAPIKey),
			MaxQueries:        s.getInt(keyLLMMaxQueries, defaults.LLM.MaxQueries),
			RequestsPerSecond: s.configStore.GetFloat(keyLLMRPS),
		},
		Session: domain.SessionSettings{
			TTL:             s.getDuration(keySessionTTL, time.Minute, defaults.Session.TTL),
			CleanupInterval: s.getDuration(keySessionCleanup, time.Minute, defaults.Session.CleanupInterval),
			ShutdownTimeout: s.getDuration(keySessionShutdown, time.Second, defaults.Session.ShutdownTimeout),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:            s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			DynamicK:        s.getBool(keyRetrievalDynamicK, defaults.Retrieval.DynamicK),
			Threshold:       float32(s.getFloat(keyRetrievalThresh, float64(defaults.Retrieval.Threshold))),
			ProviderTimeout: s.getDuration(keyRetrievalTimeout, time.Second, defaults.Retrieval.ProviderTimeout),
			MaxConcurrency:  s.getInt(keyRetrievalWorkers, defaults.Retrieval.MaxConcurrency),
		},
	}

	// The LLM model defaults per provider, so it can only be filled once
	// the provider is known.
	if settings.LLM.Model == "" && settings.LLM.Provider != "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}
	if settings.Embedding.APIKey == "" && settings.Embedding.Provider == domain.AIProviderOpenAI {
		settings.Embedding.APIKey = s.getenv(envOpenAIKey)
	}
	if settings.LLM.APIKey == "" && settings.LLM.Provider == domain.AIProviderOpenAI {
		settings.LLM.APIKey = s.getenv(envOpenAIKey)
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkerStrategy, string(settings.Chunker.Strategy)},
		{keyChunkSize, settings.Chunker.ChunkSize},
		{keyChunkOverlap, settings.Chunker.ChunkOverlap},
		{keyChunkMinWords, settings.Chunker.MinWords},
		{keyHeadingMaxWords, settings.Chunker.HeadingMaxWords},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxQueries, settings.LLM.MaxQueries},
		{keyLLMRPS, settings.LLM.RequestsPerSecond},
		{keySessionTTL, int(settings.Session.TTL / time.Minute)},
		{keySessionCleanup, int(settings.Session.CleanupInterval / time.Minute)},
		{keySessionShutdown, int(settings.Session.ShutdownTimeout / time.Second)},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalDynamicK, settings.Retrieval.DynamicK},
		{keyRetrievalThresh, float64(settings.Retrieval.Threshold)},
		{keyRetrievalTimeout, int(settings.Retrieval.ProviderTimeout / time.Second)},
		{keyRetrievalWorkers, settings.Retrieval.MaxConcurrency},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set, so keys supplied through the
	// environment never end up in the config file.
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.getenv(envOpenAIKey) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.getenv(envOpenAIKey) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider %q: %w", provider, domain.ErrInvalidConfig)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(envOpenAIKey) == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrInvalidConfig)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if !provider.IsLocal() {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey
	// A new model brings its own dimension.
	settings.Embedding.Dimensions = 0

	return s.Save(settings)
}

// SetLLMProvider configures the query rewriter. An empty provider
// disables rewriting.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if provider != "" && !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider %q: %w", provider, domain.ErrInvalidConfig)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(envOpenAIKey) == "" {
		return fmt.Errorf("API key required for %s: %w", provider, domain.ErrInvalidConfig)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" && provider != "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	if !provider.IsLocal() {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks field constraints and the rules that span
// several fields.
func ValidateSettings(settings *domain.AppSettings) error {
	if err := validate.Struct(settings); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Namespace(), e.Tag()))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	c := settings.Chunker
	if c.Strategy == domain.ChunkerFixed && c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap (%d) must be smaller than chunk_size (%d)",
			domain.ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s requires an API key",
			domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	if settings.Embedding.ResolvedDimensions() <= 0 {
		return fmt.Errorf("%w: unknown dimension for embedding model %q, set embedding.dimensions",
			domain.ErrInvalidConfig, settings.Embedding.Model)
	}
	if settings.LLM.Provider != "" {
		if !settings.LLM.IsConfigured() {
			return fmt.Errorf("%w: llm provider %s requires an API key",
				domain.ErrInvalidConfig, settings.LLM.Provider)
		}
		if settings.LLM.Model == "" {
			return fmt.Errorf("%w: llm.model is required", domain.ErrInvalidConfig)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig pings the configured query rewriter, if any.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if settings.LLM.Provider == "" {
		return nil
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats an explicit zero as a value rather than unset.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * unit
}

func (s *SettingsService) getStrategy(defaultVal domain.ChunkerStrategy) domain.ChunkerStrategy {
	val := domain.ChunkerStrategy(s.configStore.GetString(keyChunkerStrategy))
	if !val.IsValid() {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
