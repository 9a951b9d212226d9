// Package tui provides an interactive terminal user interface for querying
// one retrieval session.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
)

// Ports aggregates the driving ports and session details the TUI needs.
type Ports struct {
	// Retrieval answers queries.
	Retrieval driving.RetrievalService

	// Sessions provides session statistics for the status bar. Optional.
	Sessions driving.SessionService

	// SessionID is the session every query runs against.
	SessionID string

	// Options are the retrieval options used for each query.
	Options domain.RetrievalOptions
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.SessionID == "" {
		return ErrMissingSession
	}
	return nil
}
