package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions matches the width of common small sentence encoders.
const DefaultHashDimensions = 384

// HashEmbedder is a deterministic local encoder based on signed feature
// hashing of lowercase word tokens. Vectors are L2-normalized.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a HashEmbedder. dims <= 0 uses DefaultHashDimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector width.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Embed encodes a single text.
func (h *HashEmbedder) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("text has no tokens")
	}

	vec := make(Embedding, h.dims)
	for _, tok := range tokens {
		hs := fnv.New64a()
		hs.Write([]byte(tok))
		sum := hs.Sum64()

		slot := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[slot]--
		} else {
			vec[slot]++
		}
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, fmt.Errorf("text hashed to a zero vector")
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// EmbedBatch encodes texts in order.
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	out := make([]Embedding, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
