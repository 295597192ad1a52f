// Package memory provides a deterministic, dependency-free embedding
// provider for development wiring and tests. Vectors are hashed
// bag-of-words counts: identical text always scores 1.0, disjoint text
// scores near 0. Not a semantic model.
package memory

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const vectorDim = 256

type Provider struct{}

func NewProvider() *Provider { return &Provider{} }

func (Provider) Embed(_ context.Context, text string) ([]float64, error) {
	vector := make([]float64, vectorDim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%vectorDim]++
	}
	return vector, nil
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}
