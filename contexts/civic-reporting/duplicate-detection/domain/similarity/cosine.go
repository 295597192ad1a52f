// Package similarity holds the pure scoring math used by duplicate
// detection. Kept free of I/O so it can be tested with synthetic vectors.
package similarity

import "math"

// Cosine returns the normalized dot-product similarity of two vectors in
// [-1, 1]. Mismatched lengths and zero-magnitude vectors score 0 rather
// than erroring; such pairs can never be meaningful duplicates.
func Cosine(a []float64, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
