package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	sessions map[string]domain.SessionInfo
	swept    int
	err      error
}

func newMockSessions(ids ...string) *mockSessionService {
	m := &mockSessionService{sessions: make(map[string]domain.SessionInfo)}
	for i, id := range ids {
		m.sessions[id] = domain.SessionInfo{ID: id, ChunksIndexed: i + 1, VectorsAdded: i + 1, Documents: 1}
	}
	return m
}

func (m *mockSessionService) Delete(_ context.Context, id string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.sessions[id]; !ok {
		return false, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	delete(m.sessions, id)
	return true, nil
}

func (m *mockSessionService) List(_ context.Context) ([]domain.SessionInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	infos := make([]domain.SessionInfo, 0, len(m.sessions))
	for _, info := range m.sessions {
		infos = append(infos, info)
	}
	return infos, nil
}

func (m *mockSessionService) Info(_ context.Context, id string) (*domain.SessionInfo, error) {
	info, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	return &info, nil
}

func (m *mockSessionService) Stats(_ context.Context) domain.RegistryStats {
	stats := domain.RegistryStats{TotalSessions: len(m.sessions)}
	for _, info := range m.sessions {
		stats.TotalChunks += info.ChunksIndexed
		stats.TotalVectors += info.VectorsAdded
	}
	return stats
}

func (m *mockSessionService) Sweep(_ context.Context) (int, error) {
	return m.swept, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	lastSession string
	lastRaw     *domain.RawDocument
	err         error
}

func (m *mockIngestionService) Ingest(
	_ context.Context,
	sessionID string,
	doc *domain.ParsedDocument,
) (*domain.IngestResult, error) {
	m.lastSession = sessionID
	return &domain.IngestResult{SessionID: sessionID, DocumentID: doc.ID}, m.err
}

func (m *mockIngestionService) IngestRaw(
	_ context.Context,
	sessionID string,
	raw *domain.RawDocument,
) (*domain.IngestResult, error) {
	m.lastSession = sessionID
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestResult{
		SessionID:   sessionID,
		DocumentID:  "doc-1",
		ChunkCount:  3,
		TotalChunks: 3,
	}, nil
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result   *domain.RetrievalResult
	lastOpts domain.RetrievalOptions
	err      error

	matches   []domain.RuleMatch
	lastRules []domain.Rule
	lastK     int
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	query string,
	opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Query: query, RewrittenQueries: []string{query}, Hits: []domain.RetrievalHit{}}, nil
}

func (m *mockRetrievalService) MatchRules(
	_ context.Context,
	_ string,
	rules []domain.Rule,
	k int,
) ([]domain.RuleMatch, error) {
	m.lastRules, m.lastK = rules, k
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

func newTestServer(sessions *mockSessionService, ingest *mockIngestionService, retrieve *mockRetrievalService) *Server {
	s, err := NewServer(&Ports{
		Sessions:  sessions,
		Ingestion: ingest,
		Retrieval: retrieve,
		Defaults:  domain.RetrievalOptions{TopK: 5, Threshold: 0.1},
	})
	if err != nil {
		panic(err)
	}
	return s
}
