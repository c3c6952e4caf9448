package lexical

import "math"

// SparseWeights returns sublinear term weights for text, L2-normalised.
// Terms come from Terms, so weights are comparable across texts.
func SparseWeights(text string) map[string]float32 {
	tf := make(map[string]int)
	for _, t := range Terms(text) {
		tf[t]++
	}
	if len(tf) == 0 {
		return nil
	}
	weights := make(map[string]float64, len(tf))
	norm := 0.0
	for t, c := range tf {
		w := 1 + math.Log(float64(c))
		weights[t] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	out := make(map[string]float32, len(weights))
	for t, w := range weights {
		out[t] = float32(w / norm)
	}
	return out
}

// SparseDot returns the dot product of two sparse vectors.
func SparseDot(a, b map[string]float32) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	sum := 0.0
	for t, w := range a {
		if v, ok := b[t]; ok {
			sum += float64(w) * float64(v)
		}
	}
	return sum
}
