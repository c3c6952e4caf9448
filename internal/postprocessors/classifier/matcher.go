package classifier

import (
	"strings"

	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/lexical"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// Lexical weights per matched signal. A raw score of maxRawScore or more is
// a full lexical match.
const (
	codeWeight    = 3
	labelWeight   = 2
	keywordWeight = 1
	maxRawScore   = 6.0
	minKeywordLen = 4
)

// themeMatcher holds the precomputed lexical signals of one theme.
type themeMatcher struct {
	source string

	// code matches the theme code as a whole phrase ("being chased").
	code vocabulary.MarkerSet

	// label holds the stemmed label terms; all must occur.
	label []string

	// keywords are stemmed description terms that are neither stop words,
	// domain filler, short words nor already part of the label.
	keywords []string
}

func newThemeMatcher(t domain.Theme) *themeMatcher {
	m := &themeMatcher{
		source: t.EmbeddingText(),
		code:   vocabulary.NewMarkerSet(strings.ReplaceAll(t.Code, "_", " ")),
		label:  lo.Uniq(lexical.Terms(t.Label)),
	}
	seen := lo.SliceToMap(m.label, func(s string) (string, bool) { return s, true })
	for _, w := range lexical.Words(t.Description) {
		w = strings.TrimSuffix(w, "'s")
		if len(w) < minKeywordLen || vocabulary.IsStopWord(w) || vocabulary.IsFiller(w) {
			continue
		}
		stem := lexical.Stem(w)
		if seen[stem] {
			continue
		}
		seen[stem] = true
		m.keywords = append(m.keywords, stem)
	}
	return m
}

// score returns the normalised lexical score in [0, 1]. terms is the set of
// stemmed terms of text.
func (m *themeMatcher) score(text string, terms map[string]bool) float64 {
	raw := 0.0
	if m.code.Any(text) {
		raw += codeWeight
	}
	if len(m.label) > 0 && lo.EveryBy(m.label, func(t string) bool { return terms[t] }) {
		raw += labelWeight
	}
	raw += keywordWeight * float64(lo.CountBy(m.keywords, func(t string) bool { return terms[t] }))
	return min(raw/maxRawScore, 1)
}
