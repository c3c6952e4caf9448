package domain

import (
	"cmp"
	"slices"
)

// MetadataFilter narrows a similarity search. Empty fields do not filter.
type MetadataFilter struct {
	ContentTypes []ContentType `json:"content_types,omitempty"`
	Themes       []string      `json:"themes,omitempty"`
	Sources      []string      `json:"sources,omitempty"`
}

// IsEmpty returns true when the filter constrains nothing.
func (f *MetadataFilter) IsEmpty() bool {
	return f == nil || (len(f.ContentTypes) == 0 && len(f.Themes) == 0 && len(f.Sources) == 0)
}

// Matches reports whether a chunk passes the filter.
func (f *MetadataFilter) Matches(c *Chunk) bool {
	if f.IsEmpty() {
		return true
	}
	if len(f.ContentTypes) > 0 {
		ok := false
		for _, ct := range f.ContentTypes {
			if c.ContentType == ct {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Sources) > 0 {
		ok := false
		for _, s := range f.Sources {
			if c.Source == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Themes) > 0 && len(c.HasAnyTheme(f.Themes)) == 0 {
		return false
	}
	return true
}

// BoostSpec asks the engine to favour chunks carrying some themes.
type BoostSpec struct {
	Themes []string `json:"themes"`

	// Bonus is the additive score for a match; zero uses the default.
	Bonus float64 `json:"bonus,omitempty"`
}

// Score boost defaults, additive on the blended score.
const (
	DefaultCallerBoost   = 0.15
	DefaultAnalyserBoost = 0.10
	DefaultThemeAlign    = 0.08
	MinBoost             = 0.08
	MaxBoost             = 0.20
)

// RetrievalQuery is one request for passages.
type RetrievalQuery struct {
	// Text is the user's dream or question.
	Text string `json:"text"`

	// Persona selects the profile (scope, threshold, limits).
	Persona string `json:"persona"`

	// Scope overrides the persona's corpus when set.
	Scope string `json:"scope,omitempty"`

	// SimilarityThreshold overrides the persona's threshold when > 0.
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`

	// MaxResults overrides the persona's limit when > 0.
	MaxResults int `json:"max_results,omitempty"`

	Filter *MetadataFilter `json:"filter,omitempty"`
	Boost  *BoostSpec      `json:"boost,omitempty"`

	// Hybrid enables lexical blending. Nil uses the configured default.
	Hybrid *bool `json:"hybrid,omitempty"`
}

// QueryAnalysis is the cheap pre-embedding analysis of a query.
type QueryAnalysis struct {
	// Topics are the names of the topic detectors that fired.
	Topics []string `json:"topics"`

	// BoostThemes are theme codes the topics map to.
	BoostThemes []string `json:"boost_themes"`

	// MaxResults is the adjusted result limit.
	MaxResults int `json:"max_results"`
}

// ScoreComponents exposes how a passage's score was built.
type ScoreComponents struct {
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
	Boost    float64 `json:"boost"`
}

// Passage is one ranked chunk in a retrieval result.
type Passage struct {
	Chunk         Chunk           `json:"chunk"`
	Score         float64         `json:"score"`
	Components    ScoreComponents `json:"components"`
	MatchedThemes []string        `json:"matched_themes,omitempty"`
}

// Degradation reasons reported on a result.
const (
	DegradedQueryEmbedding = "query_embedding_unavailable"
	DegradedLexical        = "lexical_unavailable"
	DegradedThemeSearch    = "theme_search_unavailable"
	DegradedStore          = "store_unavailable"
	DegradedLexicalOnly    = "lexical_only_fallback"
)

// RetrievalResult is the outcome of one retrieval.
type RetrievalResult struct {
	Passages []Passage     `json:"passages"`
	Analysis QueryAnalysis `json:"analysis"`

	// Broadened is set when the anti-repetition retry dropped the filter.
	Broadened bool `json:"broadened,omitempty"`

	// Degraded lists the signals that were unavailable.
	Degraded []string `json:"degraded,omitempty"`
}

// Empty reports whether no passages were found. This is a valid outcome.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Passages) == 0
}

// IDs returns the chunk ids in rank order.
func (r *RetrievalResult) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, len(r.Passages))
	for i, p := range r.Passages {
		ids[i] = p.Chunk.ID
	}
	return ids
}

// SimilarityQuery is the store-level similarity search request.
type SimilarityQuery struct {
	Scope     string
	Embedding []float32
	Threshold float64
	Limit     int
	Filter    *MetadataFilter
}

// SimilarityHit is one store-level similarity result.
type SimilarityHit struct {
	Chunk      Chunk
	Similarity float64
}

// SortHits orders hits by similarity descending, then id ascending.
func SortHits(hits []SimilarityHit) {
	slices.SortFunc(hits, func(a, b SimilarityHit) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
}
