// Package interpretation parses the output of a persona interpreter into
// one of three shapes: a narrative analysis, structured insights, or a
// fallback carrying the raw text. The shape is chosen by a fixed set of
// discriminating fields so the same input always parses the same way.
package interpretation

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/reverie/internal/logger"
)

// Kind identifies which variant a Result holds.
type Kind string

const (
	KindNarrative  Kind = "narrative_analysis"
	KindStructured Kind = "structured_insights"
	KindFallback   Kind = "fallback"
)

// Discriminating fields, checked in this order. The first present and
// non-empty field decides the kind.
var (
	structuredFields = []string{"insights", "key_insights"}
	narrativeFields  = []string{"interpretation", "analysis", "narrative"}
)

// Symbol is one dream symbol and its reading.
type Symbol struct {
	Name    string `json:"name"`
	Meaning string `json:"meaning,omitempty"`
}

// NarrativeAnalysis is a prose interpretation with optional annotations.
type NarrativeAnalysis struct {
	Interpretation string   `json:"interpretation"`
	Symbols        []Symbol `json:"symbols,omitempty"`
	Themes         []string `json:"themes,omitempty"`
	Emotions       []string `json:"emotions,omitempty"`
	Questions      []string `json:"questions,omitempty"`
}

// Insight is one titled point of a structured interpretation.
type Insight struct {
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail"`
}

// StructuredInsights is an interpretation broken into discrete points.
type StructuredInsights struct {
	Summary  string    `json:"summary,omitempty"`
	Insights []Insight `json:"insights"`
	Themes   []string  `json:"themes,omitempty"`
	Guidance []string  `json:"guidance,omitempty"`
}

// Fallback keeps output that matched neither shape.
type Fallback struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// Result holds exactly one variant, selected by Kind.
type Result struct {
	Kind       Kind                `json:"kind"`
	Narrative  *NarrativeAnalysis  `json:"narrative,omitempty"`
	Structured *StructuredInsights `json:"structured,omitempty"`
	Fallback   *Fallback           `json:"fallback,omitempty"`
}

// Text returns the main prose of the result for display.
func (r Result) Text() string {
	switch r.Kind {
	case KindNarrative:
		return r.Narrative.Interpretation
	case KindStructured:
		if r.Structured.Summary != "" {
			return r.Structured.Summary
		}
		parts := make([]string, 0, len(r.Structured.Insights))
		for _, in := range r.Structured.Insights {
			parts = append(parts, in.Detail)
		}
		return strings.Join(parts, "\n")
	default:
		if r.Fallback == nil {
			return ""
		}
		return r.Fallback.Text
	}
}

// Parse never fails: output that cannot be read as one of the known
// shapes becomes a Fallback holding the trimmed text.
func Parse(raw string) Result {
	text := strings.TrimSpace(raw)
	if text == "" {
		return fallback("", "empty response")
	}

	doc, ok := extractObject(text)
	if !ok {
		return fallback(text, "no JSON object")
	}

	var r Result
	switch Discriminate(doc) {
	case KindStructured:
		r = Result{Kind: KindStructured, Structured: parseStructured(doc)}
	case KindNarrative:
		r = Result{Kind: KindNarrative, Narrative: parseNarrative(doc)}
	default:
		r = fallback(text, "no discriminating field")
	}
	logger.Debug("interpretation: parsed %s", r.Kind)
	return r
}

// Discriminate returns the kind a JSON object maps to.
func Discriminate(doc gjson.Result) Kind {
	if !doc.IsObject() {
		return KindFallback
	}
	for _, f := range structuredFields {
		if v := doc.Get(f); v.IsArray() && len(v.Array()) > 0 {
			return KindStructured
		}
	}
	for _, f := range narrativeFields {
		if v := doc.Get(f); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return KindNarrative
		}
	}
	return KindFallback
}

func fallback(text, reason string) Result {
	logger.Debug("interpretation: fallback (%s)", reason)
	return Result{Kind: KindFallback, Fallback: &Fallback{Text: text, Reason: reason}}
}

// extractObject finds the JSON object in text: the whole text, a fenced
// code block, or the span between the first '{' and the last '}'.
func extractObject(text string) (gjson.Result, bool) {
	candidates := []string{text}
	if block, ok := fencedBlock(text); ok {
		candidates = append(candidates, block)
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	for _, c := range candidates {
		if gjson.Valid(c) {
			if doc := gjson.Parse(c); doc.IsObject() {
				return doc, true
			}
		}
	}
	return gjson.Result{}, false
}

func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	// Skip a language tag such as "json".
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func parseNarrative(doc gjson.Result) *NarrativeAnalysis {
	n := &NarrativeAnalysis{
		Themes:    stringList(doc.Get("themes")),
		Emotions:  stringList(doc.Get("emotions")),
		Questions: stringList(doc.Get("questions")),
		Symbols:   symbols(doc.Get("symbols")),
	}
	for _, f := range narrativeFields {
		if v := strings.TrimSpace(doc.Get(f).String()); v != "" {
			n.Interpretation = v
			break
		}
	}
	return n
}

func parseStructured(doc gjson.Result) *StructuredInsights {
	s := &StructuredInsights{
		Summary:  strings.TrimSpace(doc.Get("summary").String()),
		Themes:   stringList(doc.Get("themes")),
		Guidance: stringList(firstPresent(doc, "guidance", "recommendations", "suggestions")),
	}
	for _, f := range structuredFields {
		v := doc.Get(f)
		if !v.IsArray() {
			continue
		}
		v.ForEach(func(_, item gjson.Result) bool {
			if in, ok := insight(item); ok {
				s.Insights = append(s.Insights, in)
			}
			return true
		})
		if len(s.Insights) > 0 {
			break
		}
	}
	return s
}

func insight(item gjson.Result) (Insight, bool) {
	if item.Type == gjson.String {
		d := strings.TrimSpace(item.String())
		return Insight{Detail: d}, d != ""
	}
	if !item.IsObject() {
		return Insight{}, false
	}
	in := Insight{
		Title:  strings.TrimSpace(firstPresent(item, "title", "heading", "name").String()),
		Detail: strings.TrimSpace(firstPresent(item, "detail", "description", "content", "text").String()),
	}
	if in.Detail == "" {
		in.Detail, in.Title = in.Title, ""
	}
	return in, in.Detail != ""
}

// symbols accepts a list of names, a list of {name, meaning} objects or an
// object mapping names to meanings.
func symbols(v gjson.Result) []Symbol {
	var out []Symbol
	switch {
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.String {
				if name := strings.TrimSpace(item.String()); name != "" {
					out = append(out, Symbol{Name: name})
				}
				return true
			}
			s := Symbol{
				Name:    strings.TrimSpace(firstPresent(item, "name", "symbol").String()),
				Meaning: strings.TrimSpace(firstPresent(item, "meaning", "interpretation").String()),
			}
			if s.Name != "" {
				out = append(out, s)
			}
			return true
		})
	case v.IsObject():
		v.ForEach(func(key, val gjson.Result) bool {
			out = append(out, Symbol{Name: key.String(), Meaning: strings.TrimSpace(val.String())})
			return true
		})
	}
	return out
}

// stringList accepts a list of strings or a single comma-separated string.
func stringList(v gjson.Result) []string {
	var out []string
	switch {
	case v.IsArray():
		v.ForEach(func(_, item gjson.Result) bool {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
			return true
		})
	case v.Type == gjson.String:
		for _, s := range strings.Split(v.String(), ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func firstPresent(doc gjson.Result, fields ...string) gjson.Result {
	for _, f := range fields {
		if v := doc.Get(f); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
