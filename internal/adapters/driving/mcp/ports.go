package mcp

import (
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sessions inspects and removes sessions.
	Sessions driving.SessionService

	// Ingestion loads documents into sessions.
	Ingestion driving.IngestionService

	// Retrieval answers queries against a session.
	Retrieval driving.RetrievalService

	// Defaults fills retrieval options the caller leaves unset.
	Defaults domain.RetrievalOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Sessions == nil:
		return ErrMissingSessionService
	case p.Ingestion == nil:
		return ErrMissingIngestionService
	case p.Retrieval == nil:
		return ErrMissingRetrievalService
	}
	return nil
}
