// Package classifier assigns content type, themes, concepts and confidence
// to chunks of dream-literature text.
//
// Theme matching is hybrid: a lexical pass over each theme's code, label
// and description, plus a semantic pass comparing the chunk embedding with
// the theme embeddings. Expository (theoretical) text is held to stricter
// thresholds so passing mentions of symbols do not become themes.
package classifier

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/lexical"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/vecmath"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// Verify interface compliance.
var _ driving.ClassificationService = (*Classifier)(nil)

// Matching thresholds. Semantic similarity below the threshold contributes
// nothing; combined scores below the floor are rejected.
const (
	NarrativeSemanticThreshold   = 0.35
	TheoreticalSemanticThreshold = 0.5
	NarrativeFloor               = 0.3
	TheoreticalFloor             = 0.6

	// SemanticWeight scales the semantic similarity added to the lexical score.
	SemanticWeight = 0.5

	keywordCount = 8
)

// ThemeSource supplies the themes available to a persona, with embeddings
// attached when they are known.
type ThemeSource interface {
	ForPersona(persona string) []domain.Theme
}

// Classifier implements driving.ClassificationService.
type Classifier struct {
	themes   ThemeSource
	personas map[string]domain.PersonaProfile

	mu       sync.RWMutex
	matchers map[string]*themeMatcher

	warnOnce sync.Once
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPersonas sets the persona profiles used for the theoretical discount.
func WithPersonas(personas map[string]domain.PersonaProfile) Option {
	return func(c *Classifier) {
		c.personas = personas
	}
}

// New creates a classifier over the given theme source.
func New(themes ThemeSource, opts ...Option) *Classifier {
	c := &Classifier{
		themes:   themes,
		matchers: make(map[string]*themeMatcher),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify labels text. It never fails: a panic anywhere in the pass is
// recovered into domain.FallbackClassification. A nil embedding, or themes
// without embeddings, degrade to lexical matching only.
func (c *Classifier) Classify(_ context.Context, text, persona string, embedding []float32) (cl domain.Classification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("classifier: recovered from panic: %v", r)
			cl = domain.FallbackClassification()
		}
	}()

	disc := Discourse(text)
	themes := c.themes.ForPersona(persona)

	semantic := len(embedding) > 0 && lo.SomeBy(themes, func(t domain.Theme) bool {
		return len(t.Embedding) == len(embedding)
	})
	if !semantic {
		c.warnOnce.Do(func() {
			logger.Warn("classifier: %v: no chunk or theme embeddings, using lexical matching", domain.ErrClassificationDegraded)
		})
	}

	scored := c.scoreThemes(text, themes, embedding, disc.IsTheoretical)
	codes := lo.Map(scored, func(s scoredTheme, _ int) string { return s.theme.Code })
	symbols := vocabulary.DetectSymbols(text)
	ct, ctConf := ContentType(text, disc, symbols)

	themeConf := 0.0
	if len(scored) > 0 {
		themeConf = lo.SumBy(scored, func(s scoredTheme) float64 { return s.score }) / float64(len(scored))
		if disc.IsTheoretical {
			themeConf *= c.discount(persona)
		}
	}

	overall := 0.4*ctConf + 0.4*themeConf + 0.2*min(float64(len(symbols))/5, 1)

	return domain.Classification{
		PrimaryContentType: ct,
		Confidence: domain.Confidence{
			ContentType: ctConf,
			Themes:      themeConf,
			Overall:     vecmath.Clamp(overall, 0, domain.MaxOverallConfidence),
		},
		Themes:     codes,
		Concepts:   concepts(scored),
		Symbols:    symbols,
		Keywords:   nonNil(lexical.TopKeywords(text, keywordCount)),
		Complexity: Complexity(text),
		Discourse:  disc,
		Degraded:   !semantic,
	}
}

func (c *Classifier) discount(persona string) float64 {
	if p, ok := c.personas[persona]; ok {
		return p.TheoreticalDiscount
	}
	return domain.DefaultTheoreticalDiscount
}

// Discourse counts expository and first-person narrative markers.
// Expository markers are the theoretical phrases plus symbol definitions
// ("represents", "stands for"). Text is theoretical when it has expository
// markers and no narration at all, or when expository markers outnumber
// narrative ones and there are at least two of them.
func Discourse(text string) domain.Discourse {
	theo := vocabulary.Theoretical.Count(text) + vocabulary.SymbolTalk.Count(text)
	narr := vocabulary.Narrative.Count(text)
	return domain.Discourse{
		Theoretical:   theo,
		Narrative:     narr,
		IsTheoretical: (narr == 0 && theo >= 1) || (theo > narr && theo >= 2),
	}
}

type scoredTheme struct {
	theme    domain.Theme
	lexical  float64
	semantic float64
	score    float64
}

// scoreThemes returns the accepted themes, best first, capped.
func (c *Classifier) scoreThemes(text string, themes []domain.Theme, embedding []float32, theoretical bool) []scoredTheme {
	threshold, floor, limit := NarrativeSemanticThreshold, NarrativeFloor, domain.MaxThemes
	if theoretical {
		threshold, floor, limit = TheoreticalSemanticThreshold, TheoreticalFloor, domain.TheoreticalMaxThemes
	}

	terms := lo.SliceToMap(lexical.Terms(text), func(t string) (string, bool) { return t, true })

	var out []scoredTheme
	for _, t := range themes {
		s := scoredTheme{theme: t, lexical: c.matcher(t).score(text, terms)}
		if len(embedding) > 0 && len(t.Embedding) == len(embedding) {
			if sim := vecmath.Cosine(embedding, t.Embedding); sim >= threshold {
				s.semantic = sim
			}
		}
		s.score = min(s.lexical+SemanticWeight*s.semantic, 1)
		if s.score >= floor {
			out = append(out, s)
		}
	}

	slices.SortFunc(out, func(a, b scoredTheme) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return cmp.Compare(a.theme.Code, b.theme.Code)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// matcher returns the cached lexical matcher for t, rebuilding it when the
// theme's text changed since it was compiled.
func (c *Classifier) matcher(t domain.Theme) *themeMatcher {
	key := t.Code
	c.mu.RLock()
	m, ok := c.matchers[key]
	c.mu.RUnlock()
	if ok && m.source == t.EmbeddingText() {
		return m
	}

	m = newThemeMatcher(t)
	c.mu.Lock()
	c.matchers[key] = m
	c.mu.Unlock()
	return m
}

func concepts(scored []scoredTheme) []string {
	all := lo.Uniq(lo.FlatMap(scored, func(s scoredTheme, _ int) []string { return s.theme.Concepts }))
	slices.Sort(all)
	return nonNil(all)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
