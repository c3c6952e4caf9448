package domain

import "time"

// ChunkFailure records one chunk that could not be embedded.
type ChunkFailure struct {
	Position int    `json:"position"`
	Error    string `json:"error"`
}

// IngestReport summarises one document ingestion.
type IngestReport struct {
	Source string `json:"source"`
	Scope  string `json:"scope"`

	// Segments is the number of chunks the segmenter produced.
	Segments int `json:"segments"`

	// Written is the number of chunks committed to the store.
	Written int `json:"written"`

	// Skipped counts chunks already present for this source and position.
	Skipped int `json:"skipped"`

	// Degraded counts chunks classified lexical-only.
	Degraded int `json:"degraded"`

	// Failed lists chunks dropped after their embedding retries ran out.
	Failed []ChunkFailure `json:"failed,omitempty"`

	// Interrupted is set when the context ended between batches.
	Interrupted bool `json:"interrupted,omitempty"`

	Stats    SegmentStats  `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// ReclassifyReport summarises a re-classification pass.
type ReclassifyReport struct {
	Scope     string `json:"scope"`
	Examined  int    `json:"examined"`
	Changed   int    `json:"changed"`
	Unchanged int    `json:"unchanged"`
	Errors    int    `json:"errors"`
}
