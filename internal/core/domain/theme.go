package domain

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
)

var themeCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Theme is a controlled-vocabulary tag used both for classification and for
// query boosting.
type Theme struct {
	// Code is the stable identifier, lower snake case.
	Code string `json:"code" toml:"code"`

	// Label is the human-readable name.
	Label string `json:"label" toml:"label"`

	// Description is a sentence or two used for keyword extraction and
	// for the theme's embedding text.
	Description string `json:"description" toml:"description"`

	// Concepts are the psychological concepts implied by the theme.
	Concepts []string `json:"concepts,omitempty" toml:"concepts"`

	// Personas restricts the theme to some personas. Empty means all.
	Personas []string `json:"personas,omitempty" toml:"personas"`

	// Embedding is the vector of EmbeddingText(). Nil until embedded.
	Embedding []float32 `json:"-" toml:"-"`
}

// EmbeddingText returns the text embedded for semantic theme matching.
func (t Theme) EmbeddingText() string {
	return t.Label + ": " + t.Description
}

// AppliesTo reports whether the theme is available to the given persona.
func (t Theme) AppliesTo(persona string) bool {
	if len(t.Personas) == 0 || persona == "" {
		return true
	}
	for _, p := range t.Personas {
		if p == persona {
			return true
		}
	}
	return false
}

// Validate checks the theme's required fields.
func (t Theme) Validate() error {
	if !themeCodePattern.MatchString(t.Code) {
		return fmt.Errorf("%w: theme code %q must be lower snake case", ErrInvalidInput, t.Code)
	}
	if t.Label == "" {
		return fmt.Errorf("%w: theme %q has no label", ErrInvalidInput, t.Code)
	}
	return nil
}

// ThemeMatch is one semantic hit from a theme similarity search.
type ThemeMatch struct {
	Code       string  `json:"code"`
	Similarity float64 `json:"similarity"`
}

// SortThemeMatches orders matches by similarity descending, then code.
func SortThemeMatches(matches []ThemeMatch) {
	slices.SortFunc(matches, func(a, b ThemeMatch) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}
