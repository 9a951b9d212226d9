package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	SessionID string         `json:"session_id" jsonschema:"session to load the document into; created if absent"`
	Content   string         `json:"content" jsonschema:"the document text"`
	MIMEType  string         `json:"mime_type,omitempty" jsonschema:"text/plain (default), text/markdown or text/html"`
	URI       string         `json:"uri,omitempty" jsonschema:"where the document came from, e.g. a file name"`
	Title     string         `json:"title,omitempty" jsonschema:"human-readable document title"`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"extra key-value pairs recorded with the document"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	SessionID     string  `json:"session_id"`
	DocumentID    string  `json:"document_id"`
	ChunkCount    int     `json:"chunk_count"`
	FirstPosition int     `json:"first_position"`
	TotalChunks   int     `json:"total_chunks"`
	DurationMS    float64 `json:"duration_ms"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	SessionID string   `json:"session_id" jsonschema:"session to search"`
	Query     string   `json:"query" jsonschema:"the question or search query"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"number of passages to return"`
	DynamicK  *bool    `json:"dynamic_k,omitempty" jsonschema:"return more passages while scores stay close to the previous one"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"drop passages scoring below this similarity"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Query            string      `json:"query"`
	RewrittenQueries []string    `json:"rewritten_queries"`
	Hits             []HitOutput `json:"hits"`
	Count            int         `json:"count"`
	FailedQueries    int         `json:"failed_queries,omitempty"`
	SearchTimeMS     float64     `json:"search_time_ms"`
}

// HitOutput represents a single retrieved passage.
type HitOutput struct {
	Position     int     `json:"position"`
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	MatchedQuery string  `json:"matched_query"`
	ChunkType    string  `json:"chunk_type,omitempty"`
}

// RuleInput is one review rule.
type RuleInput struct {
	Title       string `json:"title" jsonschema:"short name of the rule"`
	Description string `json:"description,omitempty" jsonschema:"what the rule requires"`
	Instruction string `json:"instruction,omitempty" jsonschema:"what to do with the matched text; returned unchanged"`
}

// MatchRulesInput is the input schema for the match_rules tool.
type MatchRulesInput struct {
	SessionID string      `json:"session_id" jsonschema:"session to search"`
	Rules     []RuleInput `json:"rules" jsonschema:"rules to match against the session's passages"`
	K         int         `json:"k,omitempty" jsonschema:"passages per rule (default 3)"`
}

// MatchRulesOutput is the output schema for the match_rules tool.
type MatchRulesOutput struct {
	Matches []RuleMatchOutput `json:"matches"`
}

// RuleMatchOutput pairs one rule with its passages.
type RuleMatchOutput struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	Hits        []HitOutput `json:"hits"`
	Message     string      `json:"message,omitempty"`
}

// SessionInput identifies one session.
type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session identifier"`
}

// SessionOutput describes one session.
type SessionOutput struct {
	SessionID     string  `json:"session_id"`
	CreatedAt     string  `json:"created_at"`
	LastAccess    string  `json:"last_access"`
	IdleSeconds   float64 `json:"idle_seconds"`
	ChunksIndexed int     `json:"chunks_indexed"`
	VectorsAdded  int     `json:"vectors_added"`
	Documents     int     `json:"documents"`
	IsExpired     bool    `json:"is_expired"`
}

// ListSessionsInput is the (empty) input schema for list_sessions.
type ListSessionsInput struct{}

// ListSessionsOutput is the output schema for list_sessions.
type ListSessionsOutput struct {
	Sessions               []SessionOutput `json:"sessions"`
	TotalSessions          int             `json:"total_sessions"`
	TotalChunks            int             `json:"total_chunks"`
	TTLMinutes             float64         `json:"ttl_minutes"`
	CleanupIntervalMinutes float64         `json:"cleanup_interval_minutes"`
}

// DeleteSessionOutput is the output schema for delete_session.
type DeleteSessionOutput struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// CleanupInput is the (empty) input schema for cleanup_sessions.
type CleanupInput struct{}

// CleanupOutput is the output schema for cleanup_sessions.
type CleanupOutput struct {
	Removed int `json:"removed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Load a contract or other document into a session so it can be searched",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of a session's documents most relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "match_rules",
		Description: "Pair each review rule with the contract passages closest to it",
	}, s.handleMatchRules)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List live sessions with their size and idle time",
	}, s.handleListSessions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_info",
		Description: "Describe one session",
	}, s.handleSessionInfo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and everything indexed in it",
	}, s.handleDeleteSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "cleanup_sessions",
		Description: "Remove sessions that have been idle longer than the configured TTL",
	}, s.handleCleanup)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "text/plain"
	}

	metadata := make(map[string]any, len(input.Metadata)+1)
	for k, v := range input.Metadata {
		metadata[k] = v
	}
	if input.Title != "" {
		metadata["title"] = input.Title
	}

	result, err := s.ports.Ingestion.IngestRaw(ctx, input.SessionID, &domain.RawDocument{
		URI:      input.URI,
		MIMEType: mimeType,
		Content:  []byte(input.Content),
		Metadata: metadata,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		SessionID:     result.SessionID,
		DocumentID:    result.DocumentID,
		ChunkCount:    result.ChunkCount,
		FirstPosition: result.FirstPosition,
		TotalChunks:   result.TotalChunks,
		DurationMS:    millis(result.Duration),
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := s.ports.Defaults
	if input.TopK > 0 {
		opts.TopK = input.TopK
	}
	if input.DynamicK != nil {
		opts.DynamicK = *input.DynamicK
	}
	if input.Threshold != nil {
		opts.Threshold = float32(*input.Threshold)
	}

	result, err := s.ports.Retrieval.Retrieve(ctx, input.SessionID, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Query:            result.Query,
		RewrittenQueries: result.RewrittenQueries,
		Hits:             make([]HitOutput, len(result.Hits)),
		Count:            len(result.Hits),
		FailedQueries:    result.Metadata.FailedQueries,
		SearchTimeMS:     millis(result.Metadata.SearchTime),
	}
	for i := range result.Hits {
		output.Hits[i] = hitOutput(&result.Hits[i])
	}
	return nil, output, nil
}

func (s *Server) handleMatchRules(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input MatchRulesInput,
) (*mcp.CallToolResult, MatchRulesOutput, error) {
	rules := make([]domain.Rule, len(input.Rules))
	for i, r := range input.Rules {
		rules[i] = domain.Rule{Title: r.Title, Description: r.Description, Instruction: r.Instruction}
	}

	matches, err := s.ports.Retrieval.MatchRules(ctx, input.SessionID, rules, input.K)
	if err != nil {
		return nil, MatchRulesOutput{}, err
	}

	output := MatchRulesOutput{Matches: make([]RuleMatchOutput, len(matches))}
	for i := range matches {
		m := &matches[i]
		out := RuleMatchOutput{
			Title:       m.Rule.Title,
			Description: m.Rule.Description,
			Instruction: m.Rule.Instruction,
			Hits:        make([]HitOutput, len(m.Hits)),
			Message:     m.Message,
		}
		for j := range m.Hits {
			out.Hits[j] = hitOutput(&m.Hits[j])
		}
		output.Matches[i] = out
	}
	return nil, output, nil
}

func (s *Server) handleListSessions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	infos, err := s.ports.Sessions.List(ctx)
	if err != nil {
		return nil, ListSessionsOutput{}, err
	}
	stats := s.ports.Sessions.Stats(ctx)

	output := ListSessionsOutput{
		Sessions:               make([]SessionOutput, len(infos)),
		TotalSessions:          stats.TotalSessions,
		TotalChunks:            stats.TotalChunks,
		TTLMinutes:             stats.TTL.Minutes(),
		CleanupIntervalMinutes: stats.CleanupInterval.Minutes(),
	}
	for i := range infos {
		output.Sessions[i] = sessionOutput(&infos[i])
	}
	return nil, output, nil
}

func (s *Server) handleSessionInfo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, SessionOutput, error) {
	info, err := s.ports.Sessions.Info(ctx, input.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, sessionOutput(info), nil
}

// handleDeleteSession reports Deleted=false for an unknown session rather
// than failing, so clients can delete unconditionally.
func (s *Server) handleDeleteSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, DeleteSessionOutput, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, DeleteSessionOutput{}, domain.ErrInvalidInput
	}
	deleted, err := s.ports.Sessions.Delete(ctx, input.SessionID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, DeleteSessionOutput{}, err
	}
	return nil, DeleteSessionOutput{SessionID: input.SessionID, Deleted: deleted}, nil
}

func (s *Server) handleCleanup(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CleanupInput,
) (*mcp.CallToolResult, CleanupOutput, error) {
	removed, err := s.ports.Sessions.Sweep(ctx)
	if err != nil {
		return nil, CleanupOutput{}, err
	}
	return nil, CleanupOutput{Removed: removed}, nil
}

func sessionOutput(info *domain.SessionInfo) SessionOutput {
	return SessionOutput{
		SessionID:     info.ID,
		CreatedAt:     info.CreatedAt.Format(time.RFC3339),
		LastAccess:    info.LastAccess.Format(time.RFC3339),
		IdleSeconds:   info.IdleSeconds,
		ChunksIndexed: info.ChunksIndexed,
		VectorsAdded:  info.VectorsAdded,
		Documents:     info.Documents,
		IsExpired:     info.IsExpired,
	}
}

func hitOutput(h *domain.RetrievalHit) HitOutput {
	return HitOutput{
		Position:     h.Position,
		ChunkID:      h.ChunkID,
		DocumentID:   h.DocumentID,
		Content:      h.Content,
		Score:        float64(h.Score),
		MatchedQuery: h.MatchedQuery,
		ChunkType:    chunkType(h.Metadata),
	}
}

func chunkType(meta map[string]any) string {
	c := domain.Chunk{Metadata: meta}
	return string(c.Type())
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
