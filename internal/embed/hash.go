package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder maps text to a fixed-size bag-of-words vector using the
// hashing trick. It needs no model or network, so the portfolio index works
// with only the LLM credential configured.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of length dims.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

// Name encodes the dimension so collections built with another size are rejected.
func (h *HashEmbedder) Name() string {
	return fmt.Sprintf("hash-%d", h.dims)
}

// Embed returns the L2-normalised term-frequency vector of text.
// Text without tokens yields a zero vector.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, tok := range tokenize(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(tok))
		sum := hasher.Sum64()
		idx := int(sum % uint64(h.dims))
		// Top bit picks the sign so collisions cancel out on average.
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var sq float64
	for _, f := range vec {
		sq += float64(f) * float64(f)
	}
	if sq == 0 {
		return vec, nil
	}
	n := float32(math.Sqrt(sq))
	for i := range vec {
		vec[i] /= n
	}
	return vec, nil
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit, '+' or '#', so "C++" and "C#" survive as tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}
