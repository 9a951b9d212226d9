package driving

import (
	"context"

	"github.com/custodia-labs/clause/internal/core/domain"
)

// SessionService exposes session lifecycle and inspection.
type SessionService interface {
	// Delete destroys a session. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, sessionID string) (bool, error)

	// List returns a snapshot of every live session.
	List(ctx context.Context) ([]domain.SessionInfo, error)

	// Info returns a snapshot of one session.
	Info(ctx context.Context, sessionID string) (*domain.SessionInfo, error)

	// Stats aggregates all live sessions.
	Stats(ctx context.Context) domain.RegistryStats

	// Sweep removes expired sessions and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
