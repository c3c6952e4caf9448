package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// ContentType describes what kind of writing a chunk is, not what it is about.
type ContentType string

// Content types form a closed enumeration.
const (
	ContentTheory       ContentType = "theory"
	ContentMethodology  ContentType = "methodology"
	ContentCaseStudy    ContentType = "case_study"
	ContentDreamExample ContentType = "dream_example"
	ContentSymbol       ContentType = "symbol"
	ContentResearch     ContentType = "research"
	ContentGeneral      ContentType = "general"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTheory, ContentMethodology, ContentCaseStudy, ContentDreamExample,
		ContentSymbol, ContentResearch, ContentGeneral:
		return true
	default:
		return false
	}
}

// IsTheoretical reports whether the type is expository rather than narrative.
func (c ContentType) IsTheoretical() bool {
	return c == ContentTheory || c == ContentMethodology || c == ContentResearch
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// AllContentTypes returns every content type in declaration order.
func AllContentTypes() []ContentType {
	return []ContentType{
		ContentTheory,
		ContentMethodology,
		ContentCaseStudy,
		ContentDreamExample,
		ContentSymbol,
		ContentResearch,
		ContentGeneral,
	}
}

// Confidence holds per-dimension classification confidence, each in [0,1].
type Confidence struct {
	ContentType float64 `json:"content_type"`
	Themes      float64 `json:"themes"`
	Overall     float64 `json:"overall"`
}

// SourceDocument is one long text submitted for ingestion.
type SourceDocument struct {
	// Source is the provenance label (book or document title).
	Source string

	// Chapter is an optional provenance sub-label.
	Chapter string

	// Scope is the corpus the chunks are written to, usually the persona's.
	Scope string

	// Persona drives classification settings.
	Persona string

	// Text is the raw document text.
	Text string
}

// Chunk is a unit of retrievable text stored with classification metadata
// and an embedding. It is immutable after ingestion except for
// re-classification, which is audited.
type Chunk struct {
	// ID is the unique identifier, assigned at write time.
	ID string `json:"id"`

	// Scope is the corpus/persona collection the chunk belongs to.
	Scope string `json:"scope"`

	// Source is the originating document title.
	Source string `json:"source"`

	// Chapter is an optional provenance sub-label.
	Chapter string `json:"chapter,omitempty"`

	// Position is the sequence index within the source document.
	Position int `json:"position"`

	// StartOffset and EndOffset delimit the chunk in the source, in characters.
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	// Content is the chunk text.
	Content string `json:"content"`

	ContentType ContentType `json:"content_type"`
	Themes      []string    `json:"themes"`
	Concepts    []string    `json:"concepts"`
	Symbols     []string    `json:"symbols,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	Complexity  float64     `json:"complexity"`
	Confidence  Confidence  `json:"confidence"`

	// Embedding is the dense vector; all chunks in a collection share its size.
	Embedding []float32 `json:"-"`

	// SparseEmbedding holds optional term weights for hybrid lexical scoring.
	SparseEmbedding map[string]float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Complete reports whether the chunk carries everything a write requires.
func (c *Chunk) Complete() bool {
	return c.Content != "" && len(c.Embedding) > 0 && c.ContentType.IsValid()
}

// ValidateForWrite checks a chunk before it is stored. dims is the
// collection's established vector size, or 0 when none is established yet.
func (c *Chunk) ValidateForWrite(dims int) error {
	switch {
	case c.Scope == "" || c.Source == "":
		return fmt.Errorf("%w: chunk %d has no scope or source", ErrInvalidInput, c.Position)
	case !c.Complete():
		return fmt.Errorf("%w: chunk %q#%d is missing content, embedding or classification", ErrInvalidInput, c.Source, c.Position)
	case dims > 0 && len(c.Embedding) != dims:
		return fmt.Errorf("%w: chunk %q#%d has %d dimensions, collection has %d",
			ErrDimensionMismatch, c.Source, c.Position, len(c.Embedding), dims)
	}
	return nil
}

// ApplyClassification copies a classification onto the chunk.
func (c *Chunk) ApplyClassification(cl Classification) {
	c.ContentType = cl.PrimaryContentType
	c.Themes = cl.Themes
	c.Concepts = cl.Concepts
	c.Symbols = cl.Symbols
	c.Keywords = cl.Keywords
	c.Complexity = cl.Complexity
	c.Confidence = cl.Confidence
}

// HasAnyTheme reports whether the chunk carries at least one of the codes.
func (c *Chunk) HasAnyTheme(codes []string) []string {
	if len(codes) == 0 || len(c.Themes) == 0 {
		return nil
	}
	var matched []string
	for _, t := range c.Themes {
		for _, code := range codes {
			if t == code {
				matched = append(matched, t)
				break
			}
		}
	}
	return matched
}

// SortChunks orders chunks by source, then position, then scope.
func SortChunks(chunks []Chunk) {
	slices.SortFunc(chunks, func(a, b Chunk) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.Scope, b.Scope)
	})
}
