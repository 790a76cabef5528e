package ai

import "context"

// Embedder generates vector embeddings from text for similarity search.
// Output dimensionality is fixed regardless of input length, and the same
// model must serve both ingestion and query embedding so that similarity is
// computed in a shared vector space. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedMany generates embeddings for a batch of texts, preserving input
	// order in the returned slice.
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator answers a question under a system instruction that carries the
// retrieved grounding context. Implementations must be safe for concurrent
// use.
type Generator interface {
	Generate(ctx context.Context, instruction string, question string) (string, error)
}
