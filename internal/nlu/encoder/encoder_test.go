package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aletabank-assistant/internal/common/errors"
)

func TestEncodeDeterministic(t *testing.T) {
	enc := NewHashing(256)

	a, err := enc.Encode("what is my savings balance")
	require.NoError(t, err)
	b, err := enc.Encode("what is my savings balance")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 256)
}

func TestEncodeNormalized(t *testing.T) {
	enc := NewHashing(128)

	vec, err := enc.Encode("show me recent transactions")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, CosineSimilarity(vec, vec), 1e-6)
}

func TestEncodeEmptyInput(t *testing.T) {
	enc := NewHashing(256)

	tests := []struct {
		name string
		text string
	}{
		{name: "empty string", text: ""},
		{name: "whitespace only", text: "   \t  "},
		{name: "punctuation only", text: "?!... ---"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Encode(tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrEncoding)
		})
	}
}

func TestSimilarTextsScoreHigher(t *testing.T) {
	enc := NewHashing(256)

	base, err := enc.Encode("what is my checking account balance")
	require.NoError(t, err)
	near, err := enc.Encode("whats the balance of my checking account")
	require.NoError(t, err)
	far, err := enc.Encode("when is my next scheduled payment due")
	require.NoError(t, err)

	assert.Greater(t, CosineSimilarity(base, near), CosineSimilarity(base, far))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "lowercases", text: "Show My BALANCE", want: []string{"show", "my", "balance"}},
		{name: "strips punctuation", text: "what's my balance?", want: []string{"whats", "my", "balance"}},
		{name: "keeps digits", text: "last 30 days", want: []string{"last", "30", "days"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestSharedSingleInstance(t *testing.T) {
	a := Shared(256)
	b := Shared(512)

	assert.Same(t, a, b)
}
