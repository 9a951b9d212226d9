package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// RetrievalService answers queries against one session.
type RetrievalService interface {
	// Retrieve runs multi-query retrieval with max-score fusion.
	// It returns either a result or an error, never both.
	Retrieve(ctx context.Context, sessionID, query string, opts domain.RetrievalOptions) (*domain.RetrievalResult, error)

	// MatchRules pairs each rule with its k nearest passages, in rule
	// order. k <= 0 uses domain.DefaultRuleMatchK.
	MatchRules(ctx context.Context, sessionID string, rules []domain.Rule, k int) ([]domain.RuleMatch, error)
}
