package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// sessionGetter resolves live sessions.
type sessionGetter interface {
	Get(ctx context.Context, id string) (*Session, error)
}

// RetrievalService answers queries against one session's chunks.
// It reformulates the query, searches each reformulation concurrently
// and fuses the hits by chunk position.
type RetrievalService struct {
	sessions sessionGetter
	embedder driven.EmbeddingService
	rewriter driven.QueryRewriter // nil disables reformulation
	settings domain.RetrievalSettings
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	sessions sessionGetter,
	embedder driven.EmbeddingService,
	rewriter driven.QueryRewriter,
	settings domain.RetrievalSettings,
) *RetrievalService {
	return &RetrievalService{
		sessions: sessions,
		embedder: embedder,
		rewriter: rewriter,
		settings: settings,
	}
}

// Retrieve returns the chunks of sessionID most relevant to query.
func (s *RetrievalService) Retrieve(
	ctx context.Context,
	sessionID string,
	query string,
	opts domain.RetrievalOptions,
) (*domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query: %w", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if opts.TopK <= 0 {
		opts.TopK = s.settings.TopK
	}

	logger.Section("Retrieval")
	logger.Debug("session=%s query=%q topK=%d dynamic=%v threshold=%.3f",
		sessionID, query, opts.TopK, opts.DynamicK, opts.Threshold)

	result := &domain.RetrievalResult{
		Query: query,
		Hits:  []domain.RetrievalHit{},
		Metadata: domain.RetrievalMetadata{
			RequestedTopK: opts.TopK,
			InitialK:      opts.InitialK(),
			DynamicK:      opts.DynamicK,
			Threshold:     opts.Threshold,
		},
	}

	if session.Len() == 0 {
		logger.Debug("session %s is empty, skipping search", sessionID)
		result.RewrittenQueries = []string{query}
		return result, nil
	}

	rewriteStart := time.Now()
	queries := s.reformulate(ctx, query)
	result.RewrittenQueries = queries
	result.Metadata.RewriteTime = time.Since(rewriteStart)

	searchStart := time.Now()
	results, failed, err := s.searchAll(ctx, session, query, queries, opts.InitialK())
	if err != nil {
		return nil, err
	}
	result.Metadata.FailedQueries = failed

	candidates := fuse(results, opts.Threshold)
	result.Metadata.CandidateCount = len(candidates)

	hits := s.resolve(ctx, session, candidates)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Hits = selectHits(hits, opts)
	if result.Hits == nil {
		result.Hits = []domain.RetrievalHit{}
	}
	result.Metadata.SearchTime = time.Since(searchStart)
	result.Metadata.Returned = len(result.Hits)

	logger.Debug("retrieval: %d queries, %d candidates, %d returned in %s",
		len(queries), len(candidates), len(result.Hits), result.Metadata.SearchTime)
	return result, nil
}

// reformulate asks the rewriter for alternative phrasings. Any failure
// degrades to the original query alone.
func (s *RetrievalService) reformulate(ctx context.Context, query string) []string {
	if s.rewriter == nil {
		return []string{query}
	}

	rctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rewrites, err := s.rewriter.Rewrite(rctx, query)
	if err != nil {
		logger.Warn("query rewrite failed, using original query: %v", err)
		return []string{query}
	}

	queries := dedupeQueries(rewrites)
	if len(queries) == 0 {
		return []string{query}
	}
	return queries
}

// searchAll embeds and searches every reformulation with bounded
// concurrency. Individual failures are counted; if all fail the joined
// causes are returned wrapped in domain.ErrRetrievalFailed.
func (s *RetrievalService) searchAll(
	ctx context.Context,
	session *Session,
	original string,
	queries []string,
	k int,
) ([]queryHits, int, error) {
	var (
		mu    sync.Mutex
		slots = make([]*queryHits, len(queries))
		errs  []error
	)

	g := new(errgroup.Group)
	g.SetLimit(max(1, s.settings.MaxConcurrency))
	for i, q := range queries {
		g.Go(func() error {
			hits, err := s.searchOne(ctx, session, original, q, k)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("query %q: %w", q, err))
				mu.Unlock()
				return nil
			}
			slots[i] = &queryHits{query: q, hits: hits}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	// Keep reformulation order so ties resolve the same way every run.
	results := make([]queryHits, 0, len(queries))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	if len(results) == 0 {
		return nil, len(errs), fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, errors.Join(errs...))
	}
	for _, err := range errs {
		logger.Warn("reformulation skipped: %v", err)
	}
	return results, len(errs), nil
}

func (s *RetrievalService) searchOne(
	ctx context.Context,
	session *Session,
	original, reformulation string,
	k int,
) ([]driven.VectorHit, error) {
	text := original
	if reformulation != original {
		text = original + " | " + reformulation
	}

	ectx, cancel := s.withTimeout(ctx)
	defer cancel()
	vector, err := s.embedder.Embed(ectx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return session.Index().Search(ctx, vector, k)
}

// resolve looks up the chunk behind each candidate. Positions the store
// cannot resolve are logged and skipped.
func (s *RetrievalService) resolve(ctx context.Context, session *Session, candidates []candidate) []domain.RetrievalHit {
	hits := make([]domain.RetrievalHit, 0, len(candidates))
	for _, c := range candidates {
		chunk, err := session.Store().Get(ctx, c.position)
		if err != nil {
			logger.Warn("skipping position %d: %v", c.position, err)
			continue
		}
		hits = append(hits, domain.RetrievalHit{
			Position:     c.position,
			ChunkID:      chunk.ID,
			DocumentID:   chunk.DocumentID,
			Content:      chunk.Content,
			Score:        c.score,
			MatchedQuery: c.query,
			Metadata:     chunk.Metadata,
			CreatedAt:    chunk.CreatedAt,
		})
	}
	return hits
}

func (s *RetrievalService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.settings.ProviderTimeout)
}

// dedupeQueries trims, drops blanks and removes repeats, keeping order.
func dedupeQueries(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}
