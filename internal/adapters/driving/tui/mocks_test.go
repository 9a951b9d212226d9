package tui

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// MockRetrievalService implements driving.RetrievalService for testing.
type MockRetrievalService struct {
	RetrieveFunc func(ctx context.Context, sessionID, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error)
}

func (m *MockRetrievalService) Retrieve(
	ctx context.Context,
	sessionID, query string,
	opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, sessionID, query, opts)
	}
	return &domain.RetrievalResult{Query: query, RewrittenQueries: []string{query}}, nil
}

func (m *MockRetrievalService) MatchRules(
	_ context.Context, _ string, _ []domain.Rule, _ int,
) ([]domain.RuleMatch, error) {
	return nil, nil
}

// MockSessionService implements driving.SessionService for testing.
type MockSessionService struct {
	InfoFunc func(ctx context.Context, id string) (*domain.SessionInfo, error)
}

func (m *MockSessionService) Delete(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (m *MockSessionService) List(_ context.Context) ([]domain.SessionInfo, error) {
	return nil, nil
}

func (m *MockSessionService) Info(ctx context.Context, id string) (*domain.SessionInfo, error) {
	if m.InfoFunc != nil {
		return m.InfoFunc(ctx, id)
	}
	return &domain.SessionInfo{ID: id}, nil
}

func (m *MockSessionService) Stats(_ context.Context) domain.RegistryStats {
	return domain.RegistryStats{}
}

func (m *MockSessionService) Sweep(_ context.Context) (int, error) {
	return 0, nil
}
