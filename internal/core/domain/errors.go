package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration value that cannot be used.
	// Configuration errors are never silently corrected.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the index dimension. It is a configuration error.
	ErrDimensionMismatch = fmt.Errorf("%w: vector dimension mismatch", ErrInvalidConfig)

	// ErrUnsupportedType indicates an unknown chunker, normaliser or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRewriterUnavailable indicates the query rewriter is not configured.
	// Retrieval falls back to the original query alone.
	ErrRewriterUnavailable = errors.New("query rewriter unavailable")

	// ErrRetrievalFailed indicates every reformulated query failed to
	// produce candidates.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrSessionClosed indicates a store belonging to a destroyed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrShutdownTimeout indicates a background worker did not stop in time.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)
