package ingest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// embeddingDims is the dimensionality of locally computed vectors.
const embeddingDims = 256

// LocalEmbedder computes deterministic feature-hashed embeddings from text:
// unigrams and bigrams hashed into a fixed-width vector with a sign trick,
// then L2-normalized. It captures lexical overlap, not deep semantics,
// which is enough for duplicate and conflict detection inside one repository,
// and it costs nothing and never leaves the machine.
//
// Vectors are memoized in an expiring LRU keyed by the input text.
type LocalEmbedder struct {
	memo *expirable.LRU[string, []float64]
}

var _ Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates an embedder with a bounded memo cache.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{
		memo: expirable.NewLRU[string, []float64](4096, nil, 30*time.Minute),
	}
}

// Embed implements Embedder. The same text always yields the same vector.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if cached, ok := e.memo.Get(text); ok {
		return cached, nil
	}

	vec := make([]float64, embeddingDims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		addFeature(vec, tok)
		if i+1 < len(tokens) {
			addFeature(vec, tok+" "+tokens[i+1])
		}
	}

	norm := 0.0
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	e.memo.Add(text, vec)
	return vec, nil
}

// addFeature hashes a token into a bucket, using one hash bit as the sign
// so colliding features partially cancel instead of piling up.
func addFeature(vec []float64, token string) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()

	bucket := int(sum % embeddingDims)
	if sum&(1<<63) != 0 {
		vec[bucket] -= 1.0
	} else {
		vec[bucket] += 1.0
	}
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
