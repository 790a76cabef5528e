package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Dimension of embeddings produced by the mock embedder.
const Dimension = 64

// Embedder produces deterministic bag-of-words embeddings from token hashes.
// Texts sharing words yield similar vectors, which is enough for retrieval
// assertions in tests without a live provider.
type Embedder struct {
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls int
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}

	return Embedding(text), nil
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = Embedding(text)
	}

	return vectors, nil
}

// Calls reports how many embedding requests were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls
}

// Embedding maps text to a normalized fixed-dimension vector. The mapping is
// deterministic: the same text always yields the same vector.
func Embedding(text string) []float32 {
	vec := make([]float32, Dimension)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}

		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%Dimension]++
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		vec[0] = 1
		return vec
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}
