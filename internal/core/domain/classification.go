package domain

import "time"

// MaxThemes caps the number of themes attached to any chunk.
const MaxThemes = 5

// TheoreticalMaxThemes caps themes on expository text.
const TheoreticalMaxThemes = 2

// MaxOverallConfidence is the ceiling for Confidence.Overall.
const MaxOverallConfidence = 0.95

// FallbackConfidence is the confidence reported when classification failed
// internally and a minimal result was substituted.
const FallbackConfidence = 0.1

// Discourse records the theoretical vs narrative marker counts for a text.
type Discourse struct {
	Theoretical   int  `json:"theoretical"`
	Narrative     int  `json:"narrative"`
	IsTheoretical bool `json:"is_theoretical"`
}

// Classification is the result of classifying one chunk of text.
type Classification struct {
	PrimaryContentType ContentType `json:"primary_content_type"`
	Confidence         Confidence  `json:"confidence"`
	Themes             []string    `json:"themes"`
	Concepts           []string    `json:"concepts"`
	Symbols            []string    `json:"symbols"`
	Keywords           []string    `json:"keywords"`
	Complexity         float64     `json:"complexity"`
	Discourse          Discourse   `json:"discourse"`

	// Degraded is set when the semantic pass was skipped.
	Degraded bool `json:"degraded,omitempty"`

	// Fallback is set when an internal failure produced a minimal result.
	Fallback bool `json:"fallback,omitempty"`
}

// FallbackClassification returns the minimal-confidence result used when
// the classifier fails internally.
func FallbackClassification() Classification {
	return Classification{
		PrimaryContentType: ContentGeneral,
		Confidence: Confidence{
			ContentType: FallbackConfidence,
			Themes:      0,
			Overall:     FallbackConfidence,
		},
		Themes:   []string{},
		Concepts: []string{},
		Symbols:  []string{},
		Keywords: []string{},
		Fallback: true,
	}
}

// ClassificationAudit records one re-classification of a stored chunk.
type ClassificationAudit struct {
	ID      int64  `json:"id"`
	ChunkID string `json:"chunk_id"`

	PreviousType       ContentType `json:"previous_type"`
	PreviousThemes     []string    `json:"previous_themes"`
	PreviousConfidence float64     `json:"previous_confidence"`

	NewType       ContentType `json:"new_type"`
	NewThemes     []string    `json:"new_themes"`
	NewConfidence float64     `json:"new_confidence"`

	// Reason is a short free-text cause, e.g. "vocabulary update".
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Changed reports whether the audit captures an actual change.
func (a ClassificationAudit) Changed() bool {
	if a.PreviousType != a.NewType || len(a.PreviousThemes) != len(a.NewThemes) {
		return true
	}
	for i := range a.PreviousThemes {
		if a.PreviousThemes[i] != a.NewThemes[i] {
			return true
		}
	}
	return false
}
