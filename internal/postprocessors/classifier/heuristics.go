package classifier

import (
	"regexp"
	"unicode/utf8"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/lexical"
	"github.com/custodia-labs/reverie/internal/vecmath"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s|$)`)

const (
	longWordLen        = 7
	minSymbolsForType  = 3
	minCaseStudyMarks  = 2
	sentenceWordsScale = 30.0
	longWordScale      = 0.3
	technicalScale     = 10.0
)

// ContentType picks the primary content type and its confidence. Rules are
// tried in order: dream narrative, methodology/theory/research, case study,
// symbol discussion, then a baseline over the remaining marker counts.
func ContentType(text string, disc domain.Discourse, symbols []string) (domain.ContentType, float64) {
	if disc.Narrative >= 1 && disc.Narrative >= disc.Theoretical {
		return domain.ContentDreamExample, min(0.5+0.1*float64(disc.Narrative), 0.9)
	}

	method := vocabulary.Methodology.Count(text)
	theory := vocabulary.Theory.Count(text)
	research := vocabulary.Research.Count(text)
	cases := vocabulary.CaseStudy.Count(text)

	best, bestCount := domain.ContentMethodology, method
	if theory > bestCount {
		best, bestCount = domain.ContentTheory, theory
	}
	if research > bestCount {
		best, bestCount = domain.ContentResearch, research
	}

	if disc.IsTheoretical && bestCount > 0 && bestCount > cases {
		return best, min(0.5+0.1*float64(bestCount), 0.9)
	}

	if cases >= minCaseStudyMarks {
		return domain.ContentCaseStudy, min(0.4+0.1*float64(cases), 0.85)
	}

	talk := vocabulary.SymbolTalk.Count(text)
	if talk > 0 || len(symbols) >= minSymbolsForType {
		return domain.ContentSymbol, min(0.4+0.05*float64(len(symbols))+0.1*float64(talk), 0.8)
	}

	switch {
	case bestCount > 0 && bestCount >= cases:
		return best, 0.3
	case cases > 0:
		return domain.ContentCaseStudy, 0.3
	}
	return domain.ContentGeneral, 0.2
}

// Complexity scores reading difficulty in [0, 1] from average sentence
// length, the share of long words and the density of technical terms.
func Complexity(text string) float64 {
	words := lexical.Words(text)
	if len(words) == 0 {
		return 0
	}
	sentences := max(len(sentenceEnd.FindAllStringIndex(text, -1)), 1)

	long := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= longWordLen {
			long++
		}
	}

	n := float64(len(words))
	avgSentence := n / float64(sentences)
	longRatio := float64(long) / n
	technical := float64(vocabulary.Technical.Count(text)) / n

	score := 0.4*min(avgSentence/sentenceWordsScale, 1) +
		0.3*min(longRatio/longWordScale, 1) +
		0.3*min(technical*technicalScale, 1)
	return vecmath.Clamp(score, 0, 1)
}
