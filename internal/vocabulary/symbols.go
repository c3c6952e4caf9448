package vocabulary

import (
	"regexp"
	"sort"
	"strings"
)

// SymbolGroup is a named family of dream symbols.
type SymbolGroup struct {
	Name  string
	Words []string
	re    *regexp.Regexp
}

var symbolGroups = []SymbolGroup{
	{Name: "archetypes", Words: []string{
		"shadow", "anima", "animus", "persona", "trickster", "hero", "mother",
		"father", "child", "wise old man", "maiden", "king", "queen", "self",
	}},
	{Name: "elements", Words: []string{
		"water", "fire", "earth", "air", "ocean", "sea", "river", "rain", "storm",
		"sun", "moon", "star", "mountain", "forest", "desert", "ice", "beach", "wave",
	}},
	{Name: "animals", Words: []string{
		"snake", "serpent", "dog", "cat", "wolf", "bird", "horse", "spider", "lion",
		"bear", "fish", "owl", "insect", "rat", "eagle", "tiger",
	}},
	{Name: "objects", Words: []string{
		"house", "door", "key", "mirror", "car", "train", "bridge", "ladder",
		"stair", "clock", "book", "ring", "sword", "box", "window", "teeth",
		"money", "phone", "maze",
	}},
}

func init() {
	for i := range symbolGroups {
		g := &symbolGroups[i]
		alts := make([]string, len(g.Words))
		for j, w := range g.Words {
			alts[j] = phrasePattern(w)
		}
		g.re = regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)(?:s|es)?\b`)
	}
}

// SymbolGroups returns the symbol group names.
func SymbolGroups() []string {
	out := make([]string, len(symbolGroups))
	for i, g := range symbolGroups {
		out[i] = g.Name
	}
	return out
}

// DetectSymbols returns every symbol word found in text as a whole word,
// lower-cased, deduplicated and sorted. Simple plurals map to the singular.
func DetectSymbols(text string) []string {
	seen := make(map[string]bool)
	for _, g := range symbolGroups {
		for _, m := range g.re.FindAllStringSubmatch(text, -1) {
			seen[strings.Join(strings.Fields(strings.ToLower(m[1])), " ")] = true
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
