package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// Ensure SessionRegistry implements the interface.
var _ driving.SessionService = (*SessionRegistry)(nil)

// Session is one conversation's working memory: a vector index and a
// chunk store whose positions are aligned.
type Session struct {
	id         string
	createdAt  time.Time
	lastAccess atomic.Int64 // unix nanoseconds

	index driven.VectorIndex
	store driven.ChunkStore

	// writeMu serialises ingestion so index inserts and chunk appends
	// land as one unit.
	writeMu sync.Mutex

	docMu     sync.RWMutex
	documents map[string]map[string]any
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Index returns the session's vector index.
func (s *Session) Index() driven.VectorIndex { return s.index }

// Store returns the session's chunk store.
func (s *Session) Store() driven.ChunkStore { return s.store }

// Len returns the number of indexed chunks.
func (s *Session) Len() int { return s.store.Len() }

// LastAccess returns the last time the session was read or written, in UTC.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load()).UTC()
}

// Documents returns a copy of the per-document metadata recorded at ingestion.
func (s *Session) Documents() map[string]map[string]any {
	s.docMu.RLock()
	defer s.docMu.RUnlock()
	out := make(map[string]map[string]any, len(s.documents))
	for id, meta := range s.documents {
		out[id] = meta
	}
	return out
}

func (s *Session) touch(now time.Time) {
	s.lastAccess.Store(now.UnixNano())
}

func (s *Session) recordDocument(id string, meta map[string]any) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	s.documents[id] = meta
}

// appendChunks inserts vectors and appends chunks under the write lock.
// Vectors are checked up front so a bad batch cannot leave the index
// longer than the store.
func (s *Session) appendChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("session %s: %d chunks but %d vectors: %w",
			s.id, len(chunks), len(vectors), domain.ErrInvalidInput)
	}
	dim := s.index.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("session %s: chunk %d has %d dimensions, index has %d: %w",
				s.id, i, len(v), dim, domain.ErrDimensionMismatch)
		}
		if isZero(v) {
			return 0, fmt.Errorf("session %s: chunk %d has a zero embedding: %w", s.id, i, domain.ErrInvalidInput)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	first := s.store.Len()
	if size := s.index.Size(); size != first {
		return 0, fmt.Errorf("session %s: index has %d vectors but store has %d chunks", s.id, size, first)
	}
	for _, v := range vectors {
		if _, err := s.index.Insert(ctx, v); err != nil {
			return 0, fmt.Errorf("session %s: insert vector: %w", s.id, err)
		}
	}
	if _, err := s.store.Append(ctx, chunks); err != nil {
		return 0, fmt.Errorf("session %s: append chunks: %w", s.id, err)
	}
	return first, nil
}

func (s *Session) info(now time.Time, ttl time.Duration) domain.SessionInfo {
	last := s.LastAccess()
	s.docMu.RLock()
	docs := len(s.documents)
	s.docMu.RUnlock()
	return domain.SessionInfo{
		ID:            s.id,
		CreatedAt:     s.createdAt,
		LastAccess:    last,
		IdleSeconds:   now.Sub(last).Seconds(),
		ChunksIndexed: s.store.Len(),
		VectorsAdded:  s.index.Size(),
		Documents:     docs,
		IsExpired:     domain.IsExpired(last, now, ttl),
	}
}

// close waits for any in-flight ingestion, then releases both stores.
func (s *Session) close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return errors.Join(s.index.Close(), s.store.Close())
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// SessionRegistry owns every live session, keyed by ID.
// The registry mutex guards the map only; per-session work happens
// outside it.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newIndex        driven.VectorIndexFactory
	newStore        driven.ChunkStoreFactory
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// RegistryOption configures the session registry.
type RegistryOption func(*SessionRegistry)

// WithClock replaces time.Now, for deterministic expiry.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) {
		r.now = now
	}
}

// NewSessionRegistry creates a registry building per-session stores with
// the given factories.
func NewSessionRegistry(
	settings domain.SessionSettings,
	newIndex driven.VectorIndexFactory,
	newStore driven.ChunkStoreFactory,
	opts ...RegistryOption,
) *SessionRegistry {
	r := &SessionRegistry{
		sessions:        make(map[string]*Session),
		newIndex:        newIndex,
		newStore:        newStore,
		ttl:             settings.TTL,
		cleanupInterval: settings.CleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the session for id, creating it if needed.
func (r *SessionRegistry) GetOrCreate(_ context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("session id: %w", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok {
		s.touch(now)
		return s, nil
	}

	index, err := r.newIndex()
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	store, err := r.newStore()
	if err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("create chunk store: %w", err)
	}

	s := &Session{
		id:        id,
		createdAt: now,
		index:     index,
		store:     store,
		documents: make(map[string]map[string]any),
	}
	s.touch(now)
	r.sessions[id] = s
	logger.Info("session %s created", id)
	return s, nil
}

// Get returns the session for id and refreshes its last access.
// The touch happens under the registry lock so a concurrent sweep sees
// the refreshed time when it re-checks expiry.
func (r *SessionRegistry) Get(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	s.touch(r.now())
	return s, nil
}

// Delete destroys the session. A second delete reports domain.ErrNotFound.
func (r *SessionRegistry) Delete(_ context.Context, id string) (bool, error) {
	return r.remove(id, nil)
}

// remove deletes id if it exists and cond (when set) still holds,
// then closes the session outside the registry lock.
func (r *SessionRegistry) remove(id string, cond func(*Session) bool) (bool, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	if cond != nil && !cond(s) {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := s.close(); err != nil {
		logger.Warn("session %s: close: %v", id, err)
	}
	logger.Info("session %s deleted", id)
	return true, nil
}

// snapshot copies the live session pointers.
func (r *SessionRegistry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// List returns a snapshot of every live session, ordered by ID.
// Listing does not refresh last access.
func (r *SessionRegistry) List(_ context.Context) ([]domain.SessionInfo, error) {
	now := r.now()
	sessions := r.snapshot()
	infos := make([]domain.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info(now, r.ttl))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Info returns a snapshot of one session without refreshing last access.
func (r *SessionRegistry) Info(_ context.Context, id string) (*domain.SessionInfo, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrNotFound)
	}
	info := s.info(r.now(), r.ttl)
	return &info, nil
}

// Stats aggregates all live sessions.
func (r *SessionRegistry) Stats(_ context.Context) domain.RegistryStats {
	stats := domain.RegistryStats{
		TTL:             r.ttl,
		CleanupInterval: r.cleanupInterval,
	}
	for _, s := range r.snapshot() {
		stats.TotalSessions++
		stats.TotalChunks += s.store.Len()
		stats.TotalVectors += s.index.Size()
	}
	return stats
}

// Sweep removes every session idle for longer than the TTL.
// Expiry is checked again at removal so a session touched after the
// snapshot survives.
func (r *SessionRegistry) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	var expired []string
	for _, s := range r.snapshot() {
		if domain.IsExpired(s.LastAccess(), now, r.ttl) {
			expired = append(expired, s.id)
		}
	}

	removed := 0
	for _, id := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		ok, err := r.remove(id, func(s *Session) bool {
			return domain.IsExpired(s.LastAccess(), r.now(), r.ttl)
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		logger.Info("sweep removed %d expired sessions", removed)
	}
	return removed, nil
}

// Close deletes every session.
func (r *SessionRegistry) Close() error {
	var errs []error
	for _, s := range r.snapshot() {
		if _, err := r.remove(s.id, nil); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
