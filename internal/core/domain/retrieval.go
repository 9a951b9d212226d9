package domain

import "time"

const (
	// MinInitialK is the floor on candidates fetched per query when
	// dynamic result count is enabled.
	MinInitialK = 20

	// DynamicKRatio is the fraction of the previous kept score a further
	// hit must reach to extend a dynamic result set.
	DynamicKRatio = 0.98
)

// RetrievalOptions configures a single retrieval.
type RetrievalOptions struct {
	// TopK is the number of results to return. Zero uses the configured default.
	TopK int

	// DynamicK extends the result set past TopK while scores stay close,
	// up to twice TopK.
	DynamicK bool

	// Threshold drops candidates scoring below it.
	Threshold float32
}

// InitialK is the number of candidates fetched per reformulated query.
func (o RetrievalOptions) InitialK() int {
	if !o.DynamicK {
		return o.TopK
	}
	return max(MinInitialK, o.TopK*3)
}

// MaxResults is the hard cap on returned hits.
func (o RetrievalOptions) MaxResults() int {
	if o.DynamicK {
		return o.TopK * 2
	}
	return o.TopK
}

// RetrievalHit is one fused result.
type RetrievalHit struct {
	// Position is the chunk's position within the session.
	Position int

	// ChunkID identifies the chunk.
	ChunkID string

	// DocumentID identifies the source document.
	DocumentID string

	// Content is the chunk text.
	Content string

	// Score is the best similarity across all reformulated queries.
	Score float32

	// MatchedQuery is the reformulation that produced Score.
	MatchedQuery string

	// Metadata is the chunk metadata.
	Metadata map[string]any

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// RetrievalMetadata describes how a result was produced.
type RetrievalMetadata struct {
	RequestedTopK  int
	InitialK       int
	DynamicK       bool
	Threshold      float32
	CandidateCount int
	Returned       int
	FailedQueries  int
	RewriteTime    time.Duration
	SearchTime     time.Duration
}

// RetrievalResult is the outcome of a retrieval.
type RetrievalResult struct {
	// Query is the caller's query.
	Query string

	// RewrittenQueries are the reformulations that were searched.
	RewrittenQueries []string

	// Hits in descending score order.
	Hits []RetrievalHit

	// Metadata describes the retrieval.
	Metadata RetrievalMetadata
}

// DefaultRuleMatchK is the number of passages matched to each rule.
const DefaultRuleMatchK = 3

// NoRuleMatch is the message attached to a rule with no matching passage.
const NoRuleMatch = "No relevant contract paragraphs found."

// Rule is a review rule checked against a session's contract text.
type Rule struct {
	Title       string
	Description string

	// Instruction tells the reviewer what to do with the matched text.
	// It is carried through unchanged.
	Instruction string
}

// EmbeddingText is the text embedded to match the rule.
func (r Rule) EmbeddingText() string {
	return "title: " + r.Title + ". description: " + r.Description + ". "
}

// RuleMatch pairs a rule with the passages most similar to it.
type RuleMatch struct {
	Rule Rule

	// Hits in descending score order. Empty when nothing matched.
	Hits []RetrievalHit

	// Message is NoRuleMatch when Hits is empty.
	Message string
}
