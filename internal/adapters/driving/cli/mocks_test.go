package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/normalisers"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error

	embeddingCalls []providerCall
	llmCalls       []providerCall
}

type providerCall struct {
	Provider domain.AIProvider
	Model    string
	APIKey   string
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embeddingCalls = append(m.embeddingCalls, providerCall{provider, model, apiKey})
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmCalls = append(m.llmCalls, providerCall{provider, model, apiKey})
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error                { return m.validateErr }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error       { return m.pingErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockSessionService implements driving.SessionService for testing.
type mockSessionService struct {
	mu      sync.Mutex
	deleted []string
}

func (m *mockSessionService) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return true, nil
}

func (m *mockSessionService) List(_ context.Context) ([]domain.SessionInfo, error) {
	return nil, nil
}

func (m *mockSessionService) Info(_ context.Context, id string) (*domain.SessionInfo, error) {
	return &domain.SessionInfo{ID: id}, nil
}

func (m *mockSessionService) Stats(_ context.Context) domain.RegistryStats {
	return domain.RegistryStats{}
}

func (m *mockSessionService) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

// mockIngestionService implements driving.IngestionService for testing.
type mockIngestionService struct {
	mu       sync.Mutex
	sessions []string
	raws     []*domain.RawDocument
	err      error
}

func (m *mockIngestionService) Ingest(
	_ context.Context, sessionID string, doc *domain.ParsedDocument,
) (*domain.IngestResult, error) {
	return &domain.IngestResult{SessionID: sessionID, DocumentID: doc.ID, ChunkCount: len(doc.Paragraphs)}, nil
}

func (m *mockIngestionService) IngestRaw(
	_ context.Context, sessionID string, raw *domain.RawDocument,
) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sessions = append(m.sessions, sessionID)
	m.raws = append(m.raws, raw)
	return &domain.IngestResult{SessionID: sessionID, ChunkCount: 2}, nil
}

func (m *mockIngestionService) uris() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	uris := make([]string, 0, len(m.raws))
	for _, raw := range m.raws {
		uris = append(uris, raw.URI)
	}
	return uris
}

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	sessionID string
	query     string
	opts      domain.RetrievalOptions
	result    *domain.RetrievalResult
	err       error
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, sessionID, query string, opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	m.sessionID, m.query, m.opts = sessionID, query, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Query: query, RewrittenQueries: []string{query}}, nil
}

func (m *mockRetrievalService) MatchRules(
	_ context.Context, sessionID string, _ []domain.Rule, _ int,
) ([]domain.RuleMatch, error) {
	m.sessionID = sessionID
	return nil, m.err
}

// paragraphChunker emits one chunk per paragraph.
type paragraphChunker struct{}

func (paragraphChunker) Name() string { return "paragraph" }

func (paragraphChunker) Chunk(_ context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(doc.Paragraphs))
	for i, p := range doc.Paragraphs {
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    p.Text,
			Metadata:   map[string]any{domain.MetaChunkType: string(domain.ChunkTypeParagraph)},
		})
	}
	return chunks, nil
}

// testEngine bundles the mocks behind an Engine.
type testEngine struct {
	settings  *mockSettingsService
	sessions  *mockSessionService
	ingestion *mockIngestionService
	retrieval *mockRetrievalService
	closed    bool
}

// useTestEngine wires the command tree to mocks for the duration of t.
func useTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		settings:  newMockSettings(),
		sessions:  &mockSessionService{},
		ingestion: &mockIngestionService{},
		retrieval: &mockRetrievalService{},
	}

	Configure(Config{
		LoadSettings: func(string) (driving.SettingsService, error) {
			return te.settings, nil
		},
		BuildEngine: func(_ context.Context, settings *domain.AppSettings) (*Engine, error) {
			return &Engine{
				Sessions:    te.sessions,
				Ingestion:   te.ingestion,
				Retrieval:   te.retrieval,
				Chunker:     paragraphChunker{},
				Normalisers: normalisers.NewDefaultRegistry(),
				Settings:    settings,
				Close: func() error {
					te.closed = true
					return nil
				},
			}, nil
		},
	})

	t.Cleanup(func() {
		Configure(Config{})
		settingsService = nil
		engine = nil
	})
	return te
}

// executeCommand runs the root command with args and captures output.
func executeCommand(args ...string) (stdout, stderr string, err error) {
	resetFlags(rootCmd)
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}()

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag in the tree to its default, since the
// command tree is shared across tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
