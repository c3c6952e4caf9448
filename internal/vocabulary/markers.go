package vocabulary

import (
	"regexp"
	"sort"
	"strings"
)

// MarkerSet counts whole-phrase occurrences of a fixed list of markers.
type MarkerSet struct {
	re *regexp.Regexp
}

// NewMarkerSet compiles phrases into one case-insensitive alternation.
// Longer phrases are tried first so "i dreamed" wins over "i dream".
func NewMarkerSet(phrases ...string) MarkerSet {
	if len(phrases) == 0 {
		return MarkerSet{}
	}
	sorted := append([]string(nil), phrases...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	alts := make([]string, len(sorted))
	for i, p := range sorted {
		alts[i] = phrasePattern(p)
	}
	return MarkerSet{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)}
}

func phrasePattern(p string) string {
	words := strings.Fields(p)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// Count returns the number of non-overlapping marker occurrences.
func (m MarkerSet) Count(text string) int {
	if m.re == nil {
		return 0
	}
	return len(m.re.FindAllStringIndex(text, -1))
}

// Any reports whether at least one marker occurs.
func (m MarkerSet) Any(text string) bool {
	return m.re != nil && m.re.MatchString(text)
}

// Discourse and content-type marker phrases.
var (
	theoreticalPhrases = []string{
		"theory", "theories", "theoretical", "methodology", "according to",
		"the patient", "case study", "hypothesis", "concept of", "framework",
		"it is argued", "posits", "research suggests", "psychoanalysis",
		"psychoanalytic", "interpretation of", "the dreamer", "mechanism",
		"function of", "in general", "therefore", "furthermore", "thus",
	}

	narrativePhrases = []string{
		"i dreamed", "i dreamt", "i dream", "i found myself", "i woke up",
		"i woke", "i was", "i saw", "i felt", "i ran", "i tried", "in my dream",
		"in the dream", "last night", "i remember", "suddenly i", "i could",
		"i heard", "woke me", "chased me", "my dream",
	}

	methodologyPhrases = []string{
		"method", "methods", "methodology", "technique", "techniques", "procedure",
		"free association", "amplification", "active imagination", "step",
		"steps", "protocol", "the analyst should", "practitioners", "approach",
		"dream work", "working with dreams",
	}

	theoryPhrases = []string{
		"theory", "theories", "theoretical", "concept", "concepts", "hypothesis",
		"posits", "argued", "argues", "according to", "framework", "model of",
		"principle", "wish fulfilment", "wish fulfillment", "collective unconscious",
	}

	researchPhrases = []string{
		"study", "studies", "participants", "experiment", "experiments",
		"findings", "data", "sample", "significant", "evidence", "researchers",
		"measured", "eeg", "fmri", "rem sleep", "laboratory", "subjects",
	}

	caseStudyPhrases = []string{
		"the patient", "patient", "client", "analysand", "case", "session",
		"sessions", "presented with", "years old", "treatment", "in therapy",
		"she reported", "he reported", "her dream", "his dream",
	}

	symbolPhrases = []string{
		"symbolizes", "symbolises", "symbolic of", "symbol of", "represents",
		"stands for", "signifies", "associated with", "meaning of", "may indicate",
	}

	technicalPhrases = []string{
		"unconscious", "repression", "archetype", "archetypal", "libido",
		"cathexis", "sublimation", "projection", "transference", "individuation",
		"neural", "cortex", "hippocampus", "amygdala", "rem", "consolidation",
		"cognition", "cognitive", "psychoanalytic", "manifest content",
		"latent content", "condensation", "displacement", "complex", "ego",
		"superego", "psyche", "anima", "animus", "neurotransmitter",
	}
)

// Compiled marker sets, read-only after package init.
var (
	Theoretical = NewMarkerSet(theoreticalPhrases...)
	Narrative   = NewMarkerSet(narrativePhrases...)
	Methodology = NewMarkerSet(methodologyPhrases...)
	Theory      = NewMarkerSet(theoryPhrases...)
	Research    = NewMarkerSet(researchPhrases...)
	CaseStudy   = NewMarkerSet(caseStudyPhrases...)
	SymbolTalk  = NewMarkerSet(symbolPhrases...)
	Technical   = NewMarkerSet(technicalPhrases...)
)
