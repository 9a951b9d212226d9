package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/logger"
)

// MatchRules pairs each rule with the k passages nearest to it. Rules
// are embedded as-is, with no reformulation. Index positions the
// session cannot resolve are dropped.
func (s *RetrievalService) MatchRules(
	ctx context.Context,
	sessionID string,
	rules []domain.Rule,
	k int,
) ([]domain.RuleMatch, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules: %w", domain.ErrInvalidInput)
	}
	for i, r := range rules {
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Description) == "" {
			return nil, fmt.Errorf("rule %d has no title or description: %w", i, domain.ErrInvalidInput)
		}
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = domain.DefaultRuleMatchK
	}

	logger.Debug("session=%s matching %d rules k=%d", sessionID, len(rules), k)

	matches := make([]domain.RuleMatch, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.settings.MaxConcurrency))
	for i, rule := range rules {
		g.Go(func() error {
			hits, err := s.matchRule(gctx, session, rule, k)
			if err != nil {
				return fmt.Errorf("rule %q: %w", rule.Title, err)
			}
			matches[i] = domain.RuleMatch{Rule: rule, Hits: hits}
			if len(hits) == 0 {
				matches[i].Message = domain.NoRuleMatch
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *RetrievalService) matchRule(ctx context.Context, session *Session, rule domain.Rule, k int) ([]domain.RetrievalHit, error) {
	size := session.Len()
	if size == 0 {
		return []domain.RetrievalHit{}, nil
	}

	ectx, cancel := s.withTimeout(ctx)
	defer cancel()
	vector, err := s.embedder.Embed(ectx, rule.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	found, err := session.Index().Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(found))
	for _, h := range found {
		if h.Position < 0 || h.Position >= size {
			continue
		}
		candidates = append(candidates, candidate{position: h.Position, score: h.Score})
	}
	return s.resolve(ctx, session, candidates), nil
}
