package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var (
	terminationRule = domain.Rule{
		Title:       "Termination",
		Description: "Either party may end the agreement",
		Instruction: "Flag notice periods under 30 days",
	}
	paymentRule = domain.Rule{
		Title:       "Payment",
		Description: "Invoices are due within a fixed period",
	}
)

func positions(hits []domain.RetrievalHit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.Position
	}
	return out
}

func TestRule_EmbeddingText(t *testing.T) {
	assert.Equal(t,
		"title: Payment. description: Invoices are due within a fixed period. ",
		paymentRule.EmbeddingText())
}

func TestRetrievalService_MatchRules(t *testing.T) {
	reg := seededSession(t)
	embedder := newMockEmbedder()
	embedder.vectors[terminationRule.EmbeddingText()] = []float32{0.1, 1, 0.2}
	embedder.vectors[paymentRule.EmbeddingText()] = []float32{1, 0, 0}
	svc := NewRetrievalService(reg, embedder, nil, testRetrievalSettings())

	matches, err := svc.MatchRules(context.Background(), "s1",
		[]domain.Rule{terminationRule, paymentRule}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, terminationRule, matches[0].Rule)
	assert.Equal(t, []int{1, 2}, positions(matches[0].Hits))
	assert.Equal(t, "chunk b", matches[0].Hits[0].Content)
	assert.Empty(t, matches[0].Message)

	assert.Equal(t, paymentRule, matches[1].Rule)
	require.Len(t, matches[1].Hits, 2)
	assert.Equal(t, 0, matches[1].Hits[0].Position)
	assert.Empty(t, matches[1].Message)

	assert.ElementsMatch(t,
		[]string{paymentRule.EmbeddingText(), terminationRule.EmbeddingText()},
		embedder.Calls())
}

func TestRetrievalService_MatchRulesDefaultK(t *testing.T) {
	reg := seededSession(t)
	s, err := reg.Get(context.Background(), "s1")
	require.NoError(t, err)
	_, err = s.appendChunks(context.Background(), testChunks(2), unitVectors(2))
	require.NoError(t, err)
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	matches, err := svc.MatchRules(context.Background(), "s1", []domain.Rule{paymentRule}, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Hits, domain.DefaultRuleMatchK)
}

func TestRetrievalService_MatchRulesDropsPositionsWithoutChunk(t *testing.T) {
	reg := seededSession(t)
	s, err := reg.Get(context.Background(), "s1")
	require.NoError(t, err)
	orphan, err := s.Index().Insert(context.Background(), []float32{1, 1, 1})
	require.NoError(t, err)

	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	matches, err := svc.MatchRules(context.Background(), "s1", []domain.Rule{paymentRule}, 4)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Hits, 3)
	assert.NotContains(t, positions(matches[0].Hits), orphan)
}

func TestRetrievalService_MatchRulesEmptySession(t *testing.T) {
	reg := newTestRegistry(nil)
	_, err := reg.GetOrCreate(context.Background(), "empty")
	require.NoError(t, err)
	embedder := newMockEmbedder()
	svc := NewRetrievalService(reg, embedder, nil, testRetrievalSettings())

	matches, err := svc.MatchRules(context.Background(), "empty",
		[]domain.Rule{terminationRule, paymentRule}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Empty(t, m.Hits)
		assert.Equal(t, domain.NoRuleMatch, m.Message)
	}
	assert.Equal(t, terminationRule, matches[0].Rule)
	assert.Empty(t, embedder.Calls())
}

func TestRetrievalService_MatchRulesInvalidInput(t *testing.T) {
	reg := seededSession(t)
	svc := NewRetrievalService(reg, newMockEmbedder(), nil, testRetrievalSettings())

	tests := []struct {
		name    string
		session string
		rules   []domain.Rule
		want    error
	}{
		{"no rules", "s1", nil, domain.ErrInvalidInput},
		{"blank rule", "s1", []domain.Rule{paymentRule, {Instruction: "check"}}, domain.ErrInvalidInput},
		{"unknown session", "missing", []domain.Rule{paymentRule}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.MatchRules(context.Background(), tt.session, tt.rules, 3)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRetrievalService_MatchRulesNoEmbedder(t *testing.T) {
	svc := NewRetrievalService(seededSession(t), nil, nil, testRetrievalSettings())

	_, err := svc.MatchRules(context.Background(), "s1", []domain.Rule{paymentRule}, 3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrievalService_MatchRulesEmbedFailure(t *testing.T) {
	boom := errors.New("provider down")
	embedder := newMockEmbedder()
	embedder.failOn[terminationRule.EmbeddingText()] = boom
	svc := NewRetrievalService(seededSession(t), embedder, nil, testRetrievalSettings())

	_, err := svc.MatchRules(context.Background(), "s1",
		[]domain.Rule{paymentRule, terminationRule}, 3)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, `rule "Termination"`)
}
