package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}

	return dot
}

func TestEmbeddingDeterministic(t *testing.T) {
	first := Embedding("The sky is blue.")
	again := Embedding("The sky is blue.")

	assert.Equal(t, first, again)
	assert.Len(t, first, Dimension)
}

func TestEmbeddingNormalized(t *testing.T) {
	vec := Embedding("The sky is blue.")

	assert.InDelta(t, 1.0, cosine(vec, vec), 0.001)
}

func TestEmbeddingSimilarity(t *testing.T) {
	question := Embedding("what color is the sky")
	related := Embedding("The sky is blue.")
	unrelated := Embedding("Mountains rise far north.")

	assert.Greater(t, cosine(question, related), cosine(question, unrelated))
}

func TestEmbedderCounts(t *testing.T) {
	ctx := context.Background()

	e := &Embedder{}

	if _, err := e.Embed(ctx, "one"); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	vectors, err := e.EmbedMany(ctx, []string{"one", "two"})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	assert.Len(t, vectors, 2)
	assert.Equal(t, 2, e.Calls())
}
