package domain

import "math"

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or empty vectors return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Centroid computes the mean of the given vectors, skipping nil entries.
// Returns nil when no non-nil vector is present.
func Centroid(vectors [][]float32) []float32 {
	var dims int
	for _, v := range vectors {
		if len(v) > 0 {
			dims = len(v)
			break
		}
	}
	if dims == 0 {
		return nil
	}

	sum := make([]float64, dims)
	count := 0
	for _, v := range vectors {
		if len(v) != dims {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		count++
	}

	centroid := make([]float32, dims)
	for i := range sum {
		centroid[i] = float32(sum[i] / float64(count))
	}
	return centroid
}
