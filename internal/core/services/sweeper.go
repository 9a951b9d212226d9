package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure Sweeper implements the interface.
var _ driving.Sweeper = (*Sweeper)(nil)

// sweepTarget is the part of the registry the sweeper drives.
type sweepTarget interface {
	Sweep(ctx context.Context) (int, error)
}

// Sweeper periodically removes expired sessions.
type Sweeper struct {
	target          sweepTarget
	interval        time.Duration
	shutdownTimeout time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewSweeper creates a sweeper for the registry using the session settings.
func NewSweeper(target sweepTarget, settings domain.SessionSettings) *Sweeper {
	return &Sweeper{
		target:          target,
		interval:        settings.CleanupInterval,
		shutdownTimeout: settings.ShutdownTimeout,
	}
}

// Start runs the sweep loop. It blocks until Stop is called or ctx ends.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return domain.ErrInvalidConfig
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.cancel = cancel
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	logger.Debug("sweeper: started, interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.target.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("sweeper: sweep failed: %v", err)
		}
		return
	}
	logger.Debug("sweeper: removed %d sessions", removed)
}

// Stop signals the loop to exit and waits up to the shutdown timeout.
// If the loop is still busy after that, its context is cancelled, Stop
// waits up to one more timeout for the loop to exit, and
// domain.ErrShutdownTimeout is returned.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, done, cancel := s.stopCh, s.done, s.cancel
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	s.mu.Unlock()

	if s.shutdownTimeout <= 0 {
		<-done
		return nil
	}

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		cancel()
		logger.Warn("sweeper: shutdown timed out after %s", s.shutdownTimeout)
	}

	// The sweep context is cancelled; give the loop one more timeout to
	// observe it and exit.
	join := time.NewTimer(s.shutdownTimeout)
	defer join.Stop()
	select {
	case <-done:
	case <-join.C:
		logger.Warn("sweeper: loop still running after cancellation")
	}
	return domain.ErrShutdownTimeout
}

// Running reports whether the loop is active.
func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
