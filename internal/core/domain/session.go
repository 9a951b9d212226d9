package domain

import "time"

// SessionInfo is a point-in-time snapshot of one session.
type SessionInfo struct {
	// ID is the opaque session identifier.
	ID string

	// CreatedAt is when the session was first created.
	CreatedAt time.Time

	// LastAccess is the last read or write through the registry.
	LastAccess time.Time

	// IdleSeconds is the time since LastAccess at snapshot time.
	IdleSeconds float64

	// ChunksIndexed is the number of chunks in the session's store.
	ChunksIndexed int

	// VectorsAdded is the number of vectors in the session's index.
	VectorsAdded int

	// Documents is the number of documents ingested.
	Documents int

	// IsExpired is true when the session is due for removal.
	IsExpired bool
}

// IsExpired reports whether a session last accessed at lastAccess has
// outlived ttl at time now. A non-positive ttl never expires.
func IsExpired(lastAccess, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(lastAccess) > ttl
}

// RegistryStats aggregates all live sessions.
type RegistryStats struct {
	TotalSessions   int
	TotalChunks     int
	TotalVectors    int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// IndexStats describes activity on one vector index.
type IndexStats struct {
	// Dimension is the fixed vector length.
	Dimension int

	// Vectors is the number of stored vectors.
	Vectors int

	// Searches is the number of searches served.
	Searches int64

	// InsertTime is the cumulative time spent inserting.
	InsertTime time.Duration

	// SearchTime is the cumulative time spent searching.
	SearchTime time.Duration
}
