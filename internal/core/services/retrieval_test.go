package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbedder returns fixed vectors per text and records every call.
type mockEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failOn   map[string]error
	batchErr error
	calls    []string
	batches  int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 1, 1},
		failOn:   make(map[string]error),
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if text == "" {
		return nil, domain.ErrInvalidInput
	}
	if err, ok := m.failOn[text]; ok {
		return nil, err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return testDim }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.calls...)
	sort.Strings(out)
	return out
}

// mockRewriter returns canned reformulations.
type mockRewriter struct {
	mu       sync.Mutex
	rewrites []string
	err      error
	calls    int
}

func (m *mockRewriter) Rewrite(_ context.Context, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.rewrites, m.err
}

func (m *mockRewriter) ModelName() string            { return "mock-llm" }
func (m *mockRewriter) Ping(_ context.Context) error { return nil }
func (m *mockRewriter) Close() error                 { return nil }

// --- Test helpers ---

func testRetrievalSettings() domain.RetrievalSettings {
	return domain.RetrievalSettings{
		TopK:            5,
		ProviderTimeout: time.Second,
		MaxConcurrency:  2,
	}
}

// seededSession creates session "s1" holding three chunks along the axes.
func seededSession(t *testing.T) *SessionRegistry {
	t.Helper()
	reg := newTestRegistry(nil)
	s, err := reg.GetOrCreate(context.Background(), "s1")
	require.NoError(t, err)
	_, err = s.appendChunks(context.Background(), testChunks(3), unitVectors(3))
	require.NoError(t, err)
	return reg
}

// --- RetrievalService tests ---

func TestRetrievalService_InvalidInput(t *testing.T) {
	reg := seededSession(t)
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	_, err := svc.Retrieve(context.Background(), "s1", "   ", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Retrieve(context.Background(), "missing", "query", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRetrievalService_NoEmbedder(t *testing.T) {
	reg := seededSession(t)
	svc := NewRetrievalService(reg, nil, nil, testRetrievalSettings())

	_, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrievalService_EmptySession(t *testing.T) {
	reg := newTestRegistry(nil)
	_, err := reg.GetOrCreate(context.Background(), "empty")
	require.NoError(t, err)

	rewriter := &mockRewriter{rewrites: []string{"other"}}
	embedder := newMockEmbedder()
	svc := NewRetrievalService(reg, embedder, rewriter, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "empty", "query", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.NotNil(t, result.Hits)
	assert.Equal(t, []string{"query"}, result.RewrittenQueries)
	assert.Equal(t, 0, rewriter.calls)
	assert.Empty(t, embedder.Calls())
}

func TestRetrievalService_RanksByScore(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	embedder.vectors["termination"] = []float32{0.1, 1, 0.2}
	svc := NewRetrievalService(reg, embedder, nil, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "termination", domain.RetrievalOptions{TopK: 2})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, 1, result.Hits[0].Position)
	assert.Equal(t, "chunk b", result.Hits[0].Content)
	assert.Equal(t, "termination", result.Hits[0].MatchedQuery)
	assert.Equal(t, 2, result.Hits[1].Position)
	assert.GreaterOrEqual(t, result.Hits[0].Score, result.Hits[1].Score)

	assert.Equal(t, []string{"termination"}, result.RewrittenQueries)
	assert.Equal(t, 2, result.Metadata.RequestedTopK)
	assert.Equal(t, 2, result.Metadata.InitialK)
	assert.Equal(t, 2, result.Metadata.Returned)
	assert.Equal(t, 0, result.Metadata.FailedQueries)
}

func TestRetrievalService_DefaultTopK(t *testing.T) {
	reg := seededSession(t)
	settings := testRetrievalSettings()
	settings.TopK = 1
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, settings)

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Hits, 1)
	assert.Equal(t, 1, result.Metadata.RequestedTopK)
}

func TestRetrievalService_FusesReformulations(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	embedder.vectors["notice"] = []float32{1, 0, 0}
	embedder.vectors["notice | notice period"] = []float32{0, 0, 1}
	rewriter := &mockRewriter{rewrites: []string{"notice", "notice period"}}
	svc := NewRetrievalService(reg, embedder, rewriter, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "notice", domain.RetrievalOptions{
		TopK:      5,
		Threshold: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"notice", "notice | notice period"}, embedder.Calls())
	require.Len(t, result.Hits, 2)

	byPos := map[int]domain.RetrievalHit{}
	for _, h := range result.Hits {
		byPos[h.Position] = h
	}
	assert.Equal(t, "notice", byPos[0].MatchedQuery)
	assert.Equal(t, "notice period", byPos[2].MatchedQuery)
	assert.InDelta(t, 1.0, byPos[0].Score, 1e-5)
	assert.InDelta(t, 1.0, byPos[2].Score, 1e-5)
	// Equal scores order by position.
	assert.Equal(t, 0, result.Hits[0].Position)
}

func TestRetrievalService_RewriteFallback(t *testing.T) {
	tests := []struct {
		name     string
		rewriter *mockRewriter
	}{
		{"error", &mockRewriter{err: errors.New("llm down")}},
		{"empty output", &mockRewriter{rewrites: []string{}}},
		{"blank output", &mockRewriter{rewrites: []string{" ", ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := seededSession(t)
			svc := NewRetrievalService(reg, newMockEmbedder(), tt.rewriter, testRetrievalSettings())

			result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
			require.NoError(t, err)
			assert.Equal(t, []string{"query"}, result.RewrittenQueries)
			assert.NotEmpty(t, result.Hits)
		})
	}
}

func TestRetrievalService_DedupesRewrites(t *testing.T) {
	reg := seededSession(t)
	rewriter := &mockRewriter{rewrites: []string{"alpha", " alpha ", "", "beta", "alpha"}}
	svc := NewRetrievalService(reg, newMockEmbedder(), rewriter, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, result.RewrittenQueries)
}

func TestRetrievalService_PartialFailure(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	embedder.failOn["query | broken"] = errors.New("timeout")
	rewriter := &mockRewriter{rewrites: []string{"query", "broken"}}
	svc := NewRetrievalService(reg, embedder, rewriter, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metadata.FailedQueries)
	assert.NotEmpty(t, result.Hits)
	for _, h := range result.Hits {
		assert.Equal(t, "query", h.MatchedQuery)
	}
}

func TestRetrievalService_AllFail(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	cause := errors.New("provider down")
	embedder.failOn["query"] = cause
	svc := NewRetrievalService(reg, embedder, nil, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrRetrievalFailed)
	assert.ErrorIs(t, err, cause)
}

func TestRetrievalService_CancelledContext(t *testing.T) {
	reg := seededSession(t)
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Retrieve(ctx, "s1", "query", domain.RetrievalOptions{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrievalService_ThresholdFilters(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	embedder.vectors["query"] = []float32{1, 0, 0}
	svc := NewRetrievalService(reg, embedder, nil, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, 0, result.Hits[0].Position)
	assert.Equal(t, 1, result.Metadata.CandidateCount)
}

func TestRetrievalService_DynamicInitialK(t *testing.T) {
	reg := seededSession(t)
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{TopK: 2, DynamicK: true})
	require.NoError(t, err)
	assert.Equal(t, domain.MinInitialK, result.Metadata.InitialK)
	assert.True(t, result.Metadata.DynamicK)
	// All three chunks score equally against the fallback vector.
	assert.Len(t, result.Hits, 3)
}

func TestRetrievalService_SkipsIndexPositionsWithoutChunk(t *testing.T) {
	reg := seededSession(t)
	s, err := reg.Get(context.Background(), "s1")
	require.NoError(t, err)
	// Closest to the fallback query vector, but no chunk behind it.
	orphan, err := s.Index().Insert(context.Background(), []float32{1, 1, 1})
	require.NoError(t, err)
	require.Equal(t, 3, orphan)

	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	result, err := svc.Retrieve(context.Background(), "s1", "query", domain.RetrievalOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, result.Hits, 3)
	for _, hit := range result.Hits {
		assert.NotEqual(t, orphan, hit.Position)
		assert.NotEmpty(t, hit.ChunkID)
	}
}
