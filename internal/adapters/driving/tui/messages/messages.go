// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/clause/internal/core/domain"
)

// QueryCompleted carries a retrieval result back to the model.
type QueryCompleted struct {
	Result *domain.RetrievalResult
	Err    error
}

// HitSelected is sent when a passage is opened from the results list.
type HitSelected struct {
	Hit   domain.RetrievalHit
	Query string
}

// SessionInfoLoaded carries a snapshot of the active session.
type SessionInfoLoaded struct {
	Info *domain.SessionInfo
	Err  error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewQuery is the query input and results view.
	ViewQuery ViewType = iota
	// ViewPassage shows one retrieved passage in full.
	ViewPassage
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewQuery:
		return "query"
	case ViewPassage:
		return "passage"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
