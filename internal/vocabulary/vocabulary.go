package vocabulary

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

//go:embed themes.toml
var defaultThemes []byte

// Vocabulary is a validated, immutable set of themes.
type Vocabulary struct {
	concepts map[string]bool
	themes   []domain.Theme
	byCode   map[string]int
}

type fileFormat struct {
	Concepts []string       `toml:"concepts"`
	Themes   []domain.Theme `toml:"themes"`
}

var (
	defaultOnce  sync.Once
	defaultVocab *Vocabulary
)

// Default returns the built-in vocabulary.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		v, err := Parse(defaultThemes)
		if err != nil {
			panic(fmt.Sprintf("vocabulary: built-in themes invalid: %v", err))
		}
		defaultVocab = v
	})
	return defaultVocab
}

// Load returns the vocabulary at path, or the built-in one when path is empty.
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Parse decodes and validates a TOML vocabulary.
func Parse(data []byte) (*Vocabulary, error) {
	var f fileFormat
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return New(f.Concepts, f.Themes)
}

// New builds a vocabulary from concepts and themes, validating both.
func New(concepts []string, themes []domain.Theme) (*Vocabulary, error) {
	v := &Vocabulary{
		concepts: make(map[string]bool, len(concepts)),
		themes:   make([]domain.Theme, 0, len(themes)),
		byCode:   make(map[string]int, len(themes)),
	}
	for _, c := range concepts {
		v.concepts[c] = true
	}
	for _, t := range themes {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := v.byCode[t.Code]; dup {
			return nil, fmt.Errorf("%w: duplicate theme code %q", domain.ErrInvalidInput, t.Code)
		}
		for _, c := range t.Concepts {
			if !v.concepts[c] {
				return nil, fmt.Errorf("%w: theme %q references unknown concept %q", domain.ErrInvalidInput, t.Code, c)
			}
		}
		t.Embedding = nil
		v.byCode[t.Code] = len(v.themes)
		v.themes = append(v.themes, t)
	}
	if len(v.themes) == 0 {
		return nil, fmt.Errorf("%w: vocabulary has no themes", domain.ErrInvalidInput)
	}
	sort.Slice(v.themes, func(i, j int) bool { return v.themes[i].Code < v.themes[j].Code })
	for i, t := range v.themes {
		v.byCode[t.Code] = i
	}
	return v, nil
}

// Themes returns all themes ordered by code. The slice is a copy.
func (v *Vocabulary) Themes() []domain.Theme {
	out := make([]domain.Theme, len(v.themes))
	copy(out, v.themes)
	return out
}

// ForPersona returns themes that apply to persona, ordered by code.
func (v *Vocabulary) ForPersona(persona string) []domain.Theme {
	out := make([]domain.Theme, 0, len(v.themes))
	for _, t := range v.themes {
		if t.AppliesTo(persona) {
			out = append(out, t)
		}
	}
	return out
}

// Theme looks up one theme by code.
func (v *Vocabulary) Theme(code string) (domain.Theme, bool) {
	i, ok := v.byCode[code]
	if !ok {
		return domain.Theme{}, false
	}
	return v.themes[i], true
}

// Has reports whether code is a known theme.
func (v *Vocabulary) Has(code string) bool {
	_, ok := v.byCode[code]
	return ok
}

// Codes returns all theme codes in sorted order.
func (v *Vocabulary) Codes() []string {
	out := make([]string, len(v.themes))
	for i, t := range v.themes {
		out[i] = t.Code
	}
	return out
}

// Len returns the number of themes.
func (v *Vocabulary) Len() int {
	return len(v.themes)
}

// ValidateCodes returns ErrUnknownTheme for the first code not in the vocabulary.
func (v *Vocabulary) ValidateCodes(codes []string) error {
	for _, c := range codes {
		if !v.Has(c) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownTheme, c)
		}
	}
	return nil
}

// ConceptsFor maps theme codes to their concepts, deduplicated and sorted.
func (v *Vocabulary) ConceptsFor(codes []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, code := range codes {
		t, ok := v.Theme(code)
		if !ok {
			continue
		}
		for _, c := range t.Concepts {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}
