package vocabulary

import "strings"

var stopWords = toSet(`a about above after again against all also am an and any are as at be
because been before being below between both but by can could did do does doing down during
each either few for from further had has have having he her here hers herself him himself his
how i if in into is it its itself just may me might more most much must my myself neither no
nor not now of off often on once one only or other our ours ourselves out over own same shall
she should so some such than that the their theirs them themselves then there these they this
those through to too under until up upon very was we were what when where which while who
whom why will with within without would you your yours yourself yourselves`)

// fillerWords are generic in this domain and carry no thematic signal.
var fillerWords = toSet(`dream dreams dreaming dreamer dreamt dreamed dreamers sleep
often usually sometimes common commonly represent represents representing symbol symbols
symbolic meaning meanings feeling feelings sense life person people someone something thing
things place places time times experience experiences related relating associated
situation situations aspect aspects various typically perhaps within inner waking unknown`)

// abbreviations never end a sentence. Stored lower-case without the final dot.
var abbreviations = toSet(`dr mr mrs ms prof st etc e.g i.e vs cf jr sr no fig figs vol vols
ch p pp ed eds approx inc ltd co gen rev hon mt ave viz al op cit ibid`)

func toSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

// IsStopWord reports whether w (lower-case) is a function word.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// IsFiller reports whether w (lower-case) is generic domain filler.
func IsFiller(w string) bool {
	return fillerWords[w]
}

// IsAbbreviation reports whether token, with or without its trailing dot,
// is a known abbreviation. Matching is case-insensitive.
func IsAbbreviation(token string) bool {
	t := strings.ToLower(strings.TrimSuffix(token, "."))
	return abbreviations[t]
}
