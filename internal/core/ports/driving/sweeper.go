package driving

import "context"

// Sweeper periodically removes expired sessions.
type Sweeper interface {
	// Start begins sweeping.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop signals the worker and waits for it, bounded by the shutdown timeout.
	Stop() error
}
