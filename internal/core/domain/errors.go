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

	// ErrUnsupportedType indicates an unknown processor, provider or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or could not produce a vector within its retry budget.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreWrite indicates the knowledge store rejected a batch write.
	ErrStoreWrite = errors.New("knowledge store write failed")

	// ErrDimensionMismatch indicates a vector whose size differs from the
	// dimensionality already established for the collection.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownTheme indicates a theme code that is not in the vocabulary.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrUnknownPersona indicates a persona id with no configured profile.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrClassificationDegraded marks a classification that ran lexical-only
	// because semantic theme data was unavailable. It is logged, never returned
	// from Classify.
	ErrClassificationDegraded = errors.New("classification degraded to lexical-only")
)

// SegmentationError reports a source document that could not be segmented.
// It is fatal for that document only.
type SegmentationError struct {
	// Source is the provenance label of the rejected document.
	Source string

	// Err is the underlying cause, usually wrapping ErrInvalidInput.
	Err error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segment %q: %v", e.Source, e.Err)
}

func (e *SegmentationError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports an embedding call that exhausted its retry budget.
// Exactly one of Position (ingestion) or QueryHash (retrieval) identifies
// the failed input; content is never included.
type EmbeddingError struct {
	// Op is the operation that needed the vector ("ingest", "query", "theme").
	Op string

	// Source is the document being ingested, if any.
	Source string

	// Position is the chunk sequence index, -1 when not applicable.
	Position int

	// QueryHash is a short hash of the query text, if any.
	QueryHash string

	// Attempts is how many calls were made before giving up.
	Attempts int

	// Err is the last error returned by the adapter.
	Err error
}

func (e *EmbeddingError) Error() string {
	switch {
	case e.QueryHash != "":
		return fmt.Sprintf("%s: embed query %s after %d attempts: %v", e.Op, e.QueryHash, e.Attempts, e.Err)
	case e.Source != "":
		return fmt.Sprintf("%s: embed %q chunk %d after %d attempts: %v", e.Op, e.Source, e.Position, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("%s: embed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingUnavailable, e.Err}
}

// StoreWriteError reports a chunk batch the knowledge store rejected after
// its retry.
type StoreWriteError struct {
	// Source is the document the batch belongs to.
	Source string

	// FirstPosition is the sequence index of the first chunk in the batch.
	FirstPosition int

	// Count is the batch size.
	Count int

	// Err is the store error.
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("write %q chunks %d..%d: %v",
		e.Source, e.FirstPosition, e.FirstPosition+e.Count-1, e.Err)
}

func (e *StoreWriteError) Unwrap() []error {
	return []error{ErrStoreWrite, e.Err}
}
