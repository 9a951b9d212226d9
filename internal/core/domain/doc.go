// Package domain defines the core business entities for clause.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ParsedDocument: Paragraphs and tables ready for chunking
//   - Chunk: A retrievable unit within a session
//   - SessionInfo: A snapshot of one session's working memory
//   - RetrievalOptions / RetrievalResult: Query inputs and fused hits
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
