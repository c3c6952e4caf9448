package chunker

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// maxControlRatio is the share of non-whitespace control characters above
// which input is treated as binary.
const maxControlRatio = 0.01

// span is a half-open rune range [s, e).
type span struct {
	s, e int
}

func (sp span) len() int { return sp.e - sp.s }

// Segmenter cuts text into overlapping chunks that respect paragraph and
// sentence boundaries. It is stateless and safe for concurrent use.
type Segmenter struct {
	opts domain.SegmentOptions
}

// NewSegmenter validates opts and returns a Segmenter.
func NewSegmenter(opts domain.SegmentOptions) (*Segmenter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{opts: opts}, nil
}

// Options returns the segmenter configuration.
func (sg *Segmenter) Options() domain.SegmentOptions {
	return sg.opts
}

// Segment splits text into ordered segments. Invalid input returns a
// *domain.SegmentationError and no segments. Empty or whitespace-only
// input returns no segments and no error.
func (sg *Segmenter) Segment(source, text string) ([]domain.Segment, error) {
	if err := validateText(text); err != nil {
		return nil, &domain.SegmentationError{Source: source, Err: err}
	}

	r := []rune(text)
	whole := trim(r, span{0, len(r)})
	if whole.len() == 0 {
		return nil, nil
	}

	var units []span
	if sg.opts.RespectParagraphs {
		for _, p := range paragraphs(r, whole) {
			units = append(units, sg.split(r, p, sg.opts.MaxSize)...)
		}
	} else {
		units = sg.split(r, whole, sg.opts.MaxSize)
	}

	spans := sg.accumulate(r, units)
	out := make([]domain.Segment, len(spans))
	for i, sp := range spans {
		out[i] = domain.Segment{
			Index: i,
			Start: sp.s,
			End:   sp.e,
			Text:  string(r[sp.s:sp.e]),
		}
	}
	return out, nil
}

func validateText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", domain.ErrInvalidInput)
	}
	total, control := 0, 0
	for _, c := range text {
		total++
		if c == 0 {
			return fmt.Errorf("%w: text contains NUL bytes", domain.ErrInvalidInput)
		}
		if unicode.IsControl(c) && !unicode.IsSpace(c) {
			control++
		}
	}
	if total > 0 && float64(control)/float64(total) > maxControlRatio {
		return fmt.Errorf("%w: text looks binary (%d control characters)", domain.ErrInvalidInput, control)
	}
	return nil
}

// accumulate packs units into chunks. New content per chunk targets
// TargetSize; a chunk including its overlap never exceeds MaxSize unless
// it is the merged final chunk.
//
//nolint:gocyclo // Linear state machine over units.
func (sg *Segmenter) accumulate(r []rune, units []span) []span {
	o := sg.opts
	var out []span
	have := false
	start, newStart, end := 0, 0, 0

	for i := 0; i < len(units); {
		u := units[i]

		if !have {
			start = u.s
			if n := len(out); n > 0 && o.Overlap > 0 {
				prev := out[n-1]
				window := min(o.Overlap, o.MaxSize-(u.e-prev.e))
				if window > 0 {
					start = sg.tailStart(r, prev, window)
				}
			}
			newStart, end, have = u.s, u.e, true
			i++
			continue
		}

		newLen := u.e - newStart
		chunkLen := u.e - start
		if newLen <= o.TargetSize && chunkLen <= o.MaxSize {
			end = u.e
			i++
			continue
		}

		// 1. Buffer is big enough: emit and retry this unit in a new chunk.
		if end-newStart >= o.MinSize {
			out = append(out, span{start, end})
			have = false
			continue
		}

		// 2. Buffer is undersized but the unit still fits the hard limit.
		if chunkLen <= o.MaxSize {
			end = u.e
			i++
			continue
		}

		// 3. Take as much of the unit as the hard limit allows, but at least
		// enough to bring the chunk up to MinSize.
		room := o.MaxSize - (u.s - start)
		if room <= 0 {
			// Only whitespace separates end from u; pad into it to reach MinSize.
			out = append(out, span{start, max(end, start+o.MinSize)})
			have = false
			continue
		}
		floor := max(o.MinSize-(u.s-start), 1)
		head, rest := sg.cutPrefix(r, u, floor, room)
		out = append(out, span{start, head.e})
		have = false
		if rest.len() == 0 {
			i++
		} else {
			units[i] = rest
		}
	}

	if have {
		n := len(out)
		if n > 0 && end-newStart < o.MinSize {
			out[n-1].e = end
		} else {
			out = append(out, span{start, end})
		}
	}
	return out
}

// split breaks a unit longer than limit into pieces: sentences first, then
// word-packed pieces, then hard cuts.
func (sg *Segmenter) split(r []rune, u span, limit int) []span {
	if u.len() <= limit {
		return []span{u}
	}
	if sg.opts.RespectSentences {
		sentences := sentenceSpans(r, u)
		if len(sentences) > 1 {
			var out []span
			for _, s := range sentences {
				out = append(out, sg.split(r, s, limit)...)
			}
			return out
		}
	}
	var out []span
	for u.len() > limit {
		head, rest := cutAtWord(r, u, 1, limit)
		out = append(out, head)
		u = rest
	}
	if u.len() > 0 {
		out = append(out, u)
	}
	return out
}

// cutPrefix returns the longest prefix of u whose length lies in
// [floor, limit] and ends at a sentence boundary, else a word boundary,
// else a hard cut at limit. floor must be in [1, limit].
func (sg *Segmenter) cutPrefix(r []rune, u span, floor, limit int) (head, rest span) {
	if u.len() <= limit {
		return u, span{u.e, u.e}
	}
	if sg.opts.RespectSentences {
		best := -1
		for _, end := range sentenceEnds(r, u) {
			if n := end - u.s; n >= floor && n <= limit && end < u.e {
				best = end
			}
		}
		if best > u.s {
			return trim(r, span{u.s, best}), trim(r, span{best, u.e})
		}
	}
	return cutAtWord(r, u, floor, limit)
}

// cutAtWord cuts u at the last whitespace that leaves a head of at least
// floor runes within limit, or hard at limit.
func cutAtWord(r []rune, u span, floor, limit int) (head, rest span) {
	cut := u.s + limit
	for p := cut; p >= u.s+floor; p-- {
		if unicode.IsSpace(r[p]) {
			h := trim(r, span{u.s, p})
			if h.len() >= floor {
				return h, trim(r, span{p, u.e})
			}
		}
	}
	return span{u.s, cut}, trim(r, span{cut, u.e})
}

// tailStart picks where the overlap carried from prev begins: the earliest
// sentence start within the last window runes, else the earliest word
// start, else a raw cut.
func (sg *Segmenter) tailStart(r []rune, prev span, window int) int {
	lo := max(prev.e-window, prev.s+1)
	if lo >= prev.e {
		return prev.e
	}
	if sg.opts.RespectSentences {
		for _, end := range sentenceEnds(r, prev) {
			p := skipSpace(r, end, prev.e)
			if p >= lo && p < prev.e {
				return p
			}
		}
	}
	for p := lo; p < prev.e; p++ {
		if unicode.IsSpace(r[p-1]) && !unicode.IsSpace(r[p]) {
			return p
		}
	}
	return lo
}

// paragraphs splits u at blank lines and trims each paragraph.
func paragraphs(r []rune, u span) []span {
	var out []span
	start := u.s
	for i := u.s; i < u.e; i++ {
		if r[i] != '\n' {
			continue
		}
		j := i + 1
		for j < u.e && r[j] != '\n' && unicode.IsSpace(r[j]) {
			j++
		}
		if j < u.e && r[j] == '\n' {
			if p := trim(r, span{start, i}); p.len() > 0 {
				out = append(out, p)
			}
			for j < u.e && unicode.IsSpace(r[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if p := trim(r, span{start, u.e}); p.len() > 0 {
		out = append(out, p)
	}
	return out
}

// sentenceEnds returns the positions just past each sentence terminator in
// u, including closing quotes and brackets. Abbreviations and single-letter
// initials are not terminators.
func sentenceEnds(r []rune, u span) []int {
	var ends []int
	for i := u.s; i < u.e; i++ {
		c := r[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < u.e && (r[j] == '.' || r[j] == '!' || r[j] == '?') {
			j++
		}
		for j < u.e && isCloser(r[j]) {
			j++
		}
		if j < u.e && !unicode.IsSpace(r[j]) {
			i = j - 1
			continue
		}
		if c == '.' && j == i+1 && isAbbreviationBefore(r, u.s, i) {
			continue
		}
		if j < u.e {
			next := skipSpace(r, j, u.e)
			if next < u.e && unicode.IsLower(r[next]) {
				i = j - 1
				continue
			}
		}
		ends = append(ends, j)
		i = j - 1
	}
	return ends
}

// sentenceSpans splits u into trimmed sentences.
func sentenceSpans(r []rune, u span) []span {
	var out []span
	start := u.s
	for _, end := range sentenceEnds(r, u) {
		if s := trim(r, span{start, end}); s.len() > 0 {
			out = append(out, s)
		}
		start = end
	}
	if s := trim(r, span{start, u.e}); s.len() > 0 {
		out = append(out, s)
	}
	return out
}

func isAbbreviationBefore(r []rune, lo, dot int) bool {
	k := dot
	for k > lo && !unicode.IsSpace(r[k-1]) && !isOpener(r[k-1]) {
		k--
	}
	token := string(r[k:dot])
	if token == "" {
		return false
	}
	if utf8.RuneCountInString(token) == 1 && unicode.IsUpper([]rune(token)[0]) {
		return true
	}
	return vocabulary.IsAbbreviation(token)
}

func isCloser(c rune) bool {
	switch c {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

func isOpener(c rune) bool {
	switch c {
	case '"', '\'', '(', '[', '“', '‘', '«':
		return true
	}
	return false
}

func skipSpace(r []rune, p, limit int) int {
	for p < limit && unicode.IsSpace(r[p]) {
		p++
	}
	return p
}

func trim(r []rune, sp span) span {
	for sp.s < sp.e && unicode.IsSpace(r[sp.s]) {
		sp.s++
	}
	for sp.e > sp.s && unicode.IsSpace(r[sp.e-1]) {
		sp.e--
	}
	return sp
}

// ComputeStats summarises segments. counter may be nil.
func ComputeStats(segments []domain.Segment, counter TokenCounter) domain.SegmentStats {
	st := domain.SegmentStats{Count: len(segments)}
	if len(segments) == 0 {
		return st
	}
	total := 0
	st.Min = segments[0].Len()
	for _, s := range segments {
		n := s.Len()
		total += n
		st.Min = min(st.Min, n)
		st.Max = max(st.Max, n)
		if counter != nil {
			st.Tokens += counter.CountTokens(s.Text)
		}
	}
	st.Average = float64(total) / float64(len(segments))
	return st
}
