package semantic

import "math"

// breakFactor scales the standard deviation subtracted from the mean
// similarity to obtain the split threshold.
const breakFactor = 0.75

// Similarities returns the cosine similarity of each consecutive pair.
func Similarities(embeddings [][]float32) []float64 {
	if len(embeddings) < 2 {
		return nil
	}
	sims := make([]float64, len(embeddings)-1)
	for i := range sims {
		sims[i] = cosine(embeddings[i], embeddings[i+1])
	}
	return sims
}

// SplitPoints returns the indices i whose similarity to paragraph i+1
// falls below mean - 0.75*stddev.
func SplitPoints(sims []float64) map[int]bool {
	splits := make(map[int]bool)
	if len(sims) == 0 {
		return splits
	}

	var sum float64
	for _, s := range sims {
		sum += s
	}
	mean := sum / float64(len(sims))

	var variance float64
	for _, s := range sims {
		variance += (s - mean) * (s - mean)
	}
	std := math.Sqrt(variance / float64(len(sims)))

	threshold := mean - breakFactor*std
	for i, s := range sims {
		if s < threshold {
			splits[i] = true
		}
	}
	return splits
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
