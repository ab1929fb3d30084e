package encoder

import (
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	apperrors "aletabank-assistant/internal/common/errors"
)

// Encoder turns an utterance into a fixed-dimension vector. Implementations
// must be deterministic: the same text always yields the same vector.
type Encoder interface {
	Encode(text string) ([]float32, error)
	Dims() int
}

// HashingEncoder is a deterministic feature-hashing sentence encoder. Tokens
// and adjacent bigrams are hashed into a fixed number of dimensions with a
// signed hash, and the result is L2-normalized. No model files, no network.
type HashingEncoder struct {
	dims int
}

const bigramWeight = 0.6

func NewHashing(dims int) *HashingEncoder {
	if dims <= 0 {
		dims = 256
	}
	return &HashingEncoder{dims: dims}
}

func (e *HashingEncoder) Dims() int {
	return e.dims
}

func (e *HashingEncoder) Encode(text string) ([]float32, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, apperrors.NewEncodingError("utterance has no encodable tokens")
	}

	vec := make([]float32, e.dims)
	for _, tok := range tokens {
		e.add(vec, tok, 1.0)
	}
	for i := 0; i+1 < len(tokens); i++ {
		e.add(vec, tokens[i]+" "+tokens[i+1], bigramWeight)
	}

	normalize(vec)
	return vec, nil
}

func (e *HashingEncoder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// Tokenize lowercases, strips punctuation, and splits on whitespace. Shared
// with the pattern layer so both layers see the same normalized text.
func Tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
			// drop apostrophes so "what's" tokenizes as "whats"
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched or zero-length inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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

var (
	sharedOnce sync.Once
	sharedEnc  *HashingEncoder
)

// Shared returns the process-wide encoder, constructing it exactly once. The
// dims argument is honored only on the first call.
func Shared(dims int) *HashingEncoder {
	sharedOnce.Do(func() {
		sharedEnc = NewHashing(dims)
	})
	return sharedEnc
}
