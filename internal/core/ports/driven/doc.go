// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - VectorIndex: Per-session similarity search over embeddings
//   - ChunkStore: Per-session chunk text, aligned by position with the VectorIndex
//   - Chunker: Splits parsed documents into chunks
//   - Normaliser: Turns raw bytes into a parsed document
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - QueryRewriter: Produces query reformulations. Without it, only the original query is searched.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, chunker, or normaliser package
package driven
