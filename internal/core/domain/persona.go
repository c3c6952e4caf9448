package domain

import (
	"fmt"
	"sort"
)

// DefaultTheoreticalDiscount halves theme confidence on expository text.
const DefaultTheoreticalDiscount = 0.5

// PersonaProfile is the consolidated chunker, classifier and retrieval
// configuration for one interpreter persona.
type PersonaProfile struct {
	// ID is the persona identifier, e.g. "jungian".
	ID string `json:"id"`

	// Scope is the corpus the persona reads and writes.
	Scope string `json:"scope"`

	SimilarityThreshold float64 `json:"similarity_threshold"`
	MaxResults          int     `json:"max_results"`

	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
	MinChunk  int `json:"min_chunk"`
	MaxChunk  int `json:"max_chunk"`

	// TheoreticalDiscount multiplies theme confidence on expository text.
	TheoreticalDiscount float64 `json:"theoretical_discount"`

	// BoostBonus overrides the caller boost bonus when > 0.
	BoostBonus float64 `json:"boost_bonus"`
}

// SegmentOptions derives the segmenter configuration for the persona.
func (p PersonaProfile) SegmentOptions() SegmentOptions {
	opts := DefaultSegmentOptions()
	if p.ChunkSize > 0 {
		opts.TargetSize = p.ChunkSize
	}
	if p.Overlap > 0 {
		opts.Overlap = p.Overlap
	}
	if p.MinChunk > 0 {
		opts.MinSize = p.MinChunk
	}
	if p.MaxChunk > 0 {
		opts.MaxSize = p.MaxChunk
	}
	if opts.MaxSize < opts.TargetSize {
		opts.MaxSize = opts.TargetSize
	}
	return opts
}

// Validate checks the profile's numeric ranges.
func (p PersonaProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: persona id is empty", ErrInvalidInput)
	}
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: persona %s similarity threshold %.2f outside [0,1]",
			ErrInvalidInput, p.ID, p.SimilarityThreshold)
	}
	if p.TheoreticalDiscount < 0 || p.TheoreticalDiscount > 1 {
		return fmt.Errorf("%w: persona %s theoretical discount %.2f outside [0,1]",
			ErrInvalidInput, p.ID, p.TheoreticalDiscount)
	}
	if p.MaxResults < 0 {
		return fmt.Errorf("%w: persona %s max results is negative", ErrInvalidInput, p.ID)
	}
	if err := p.SegmentOptions().Validate(); err != nil {
		return fmt.Errorf("persona %s: %w", p.ID, err)
	}
	return nil
}

// DefaultPersonas returns the stock persona profiles.
func DefaultPersonas() map[string]PersonaProfile {
	base := func(id string, threshold float64, maxResults int) PersonaProfile {
		return PersonaProfile{
			ID:                  id,
			Scope:               id,
			SimilarityThreshold: threshold,
			MaxResults:          maxResults,
			ChunkSize:           DefaultChunkSize,
			Overlap:             DefaultOverlap,
			MinChunk:            DefaultMinChunk,
			MaxChunk:            DefaultMaxChunk,
			TheoreticalDiscount: DefaultTheoreticalDiscount,
		}
	}
	return map[string]PersonaProfile{
		"freudian":       base("freudian", 0.45, 6),
		"jungian":        base("jungian", 0.40, 8),
		"neuroscientist": base("neuroscientist", 0.55, 5),
		"eclectic":       base("eclectic", 0.35, 10),
	}
}

// PersonaIDs returns the ids of profiles in sorted order.
func PersonaIDs(profiles map[string]PersonaProfile) []string {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
