package lexical

import "math"

// BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Index is a small in-memory inverted index for BM25 over a candidate set.
// It is built per query and not safe for concurrent mutation.
type Index struct {
	k1, b     float64
	docFreq   map[string]int
	termFreqs []map[string]int
	lengths   []int
	avgLen    float64
}

// NewIndex indexes docs in order.
func NewIndex(docs []string) *Index {
	idx := &Index{
		k1:        DefaultK1,
		b:         DefaultB,
		docFreq:   make(map[string]int),
		termFreqs: make([]map[string]int, len(docs)),
		lengths:   make([]int, len(docs)),
	}
	total := 0
	for i, d := range docs {
		tf := make(map[string]int)
		terms := Terms(d)
		for _, t := range terms {
			tf[t]++
		}
		for t := range tf {
			idx.docFreq[t]++
		}
		idx.termFreqs[i] = tf
		idx.lengths[i] = len(terms)
		total += len(terms)
	}
	if len(docs) > 0 {
		idx.avgLen = float64(total) / float64(len(docs))
	}
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.lengths)
}

// Score returns the raw BM25 score of every document for query.
// IDF uses the non-negative form log(1 + (N-df+0.5)/(df+0.5)) so small
// candidate sets never produce negative scores.
func (idx *Index) Score(query string) []float64 {
	scores := make([]float64, len(idx.lengths))
	if len(scores) == 0 || idx.avgLen == 0 {
		return scores
	}
	n := float64(len(idx.lengths))
	seen := make(map[string]bool)
	for _, term := range Terms(query) {
		if seen[term] {
			continue
		}
		seen[term] = true
		df := float64(idx.docFreq[term])
		if df == 0 {
			continue
		}
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for i, tf := range idx.termFreqs {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			norm := idx.k1 * (1 - idx.b + idx.b*float64(idx.lengths[i])/idx.avgLen)
			scores[i] += idf * (f * (idx.k1 + 1)) / (f + norm)
		}
	}
	return scores
}

// Normalized returns Score divided by the maximum so the best document
// scores 1. All zeros stay zero.
func (idx *Index) Normalized(query string) []float64 {
	return NormalizeMax(idx.Score(query))
}

// NormalizeMax scales scores into [0,1] by their maximum.
func NormalizeMax(scores []float64) []float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	if max == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = s / max
	}
	return out
}
