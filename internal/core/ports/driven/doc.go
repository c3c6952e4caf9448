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
//   - KnowledgeStore: Chunk, theme and audit persistence with similarity search
//   - EmbeddingService: Generates dense vectors for chunks, themes and queries
//   - ConfigStore: Application configuration
//   - PostProcessor: One stage of the segmentation pipeline
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingCache: Query-embedding cache. Without it, a failed query embed
//     cannot fall back to a previously computed vector.
//   - SparseEmbedder: Sparse term weights. Without it, lexical scoring uses
//     BM25 over the candidate set.
//   - NormaliserRegistry: Text extraction for ingest. Without it, files are
//     ingested as raw UTF-8 text.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
