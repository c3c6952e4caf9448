package lexical

import (
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// Words splits text into lower-case word tokens. Apostrophes inside a word
// are kept ("dreamer's"); all other punctuation separates.
func Words(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, strings.Trim(b.String(), "'"))
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case (r == '\'' || r == '’') && b.Len() > 0:
			b.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()
	return out
}

// Terms returns the indexable terms of text: words minus stop words and
// single letters, stemmed.
func Terms(text string) []string {
	words := Words(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSuffix(w, "'s")
		if len(w) < 2 || vocabulary.IsStopWord(w) {
			continue
		}
		out = append(out, Stem(w))
	}
	return out
}

// Stem strips common English inflections so "chased", "chasing" and
// "chases" share the term "chas". It is deliberately conservative and
// never reduces a word below three letters
// except for the -ies and -ied forms.
func Stem(w string) string {
	for _, suf := range []string{"ingly", "edly", "ing", "ies", "ied", "ed", "es", "ly", "s", "e"} {
		minStem := 3
		if suf == "ies" || suf == "ied" {
			minStem = 2
		}
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= minStem {
			stem := w[:len(w)-len(suf)]
			if minStem == 2 {
				stem += "y"
			}
			if suf == "s" && strings.HasSuffix(stem, "s") {
				return w
			}
			return stem
		}
	}
	return w
}

// TopKeywords returns up to n content words of text ranked by frequency,
// then alphabetically. Stop words, domain filler and words shorter than
// four letters are skipped.
func TopKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, w := range Words(text) {
		w = strings.TrimSuffix(w, "'s")
		if len(w) < 4 || vocabulary.IsStopWord(w) || vocabulary.IsFiller(w) || isNumeric(w) {
			continue
		}
		counts[w]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func isNumeric(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
