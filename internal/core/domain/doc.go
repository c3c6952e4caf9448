// Package domain defines the core business entities for Reverie.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A classified, embedded unit of source text
//   - Theme: A controlled-vocabulary topical tag with its own embedding
//   - Classification: The content type, themes and confidence of a chunk
//   - RetrievalQuery / RetrievalResult: One ranked retrieval round trip
//   - RepetitionTracker: Session-scoped anti-repetition state
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
