package vector

import (
	"context"
	"errors"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
}

// Store is a named-collection vector store. Collections are created on first
// write and queried read-only afterwards; querying a collection that has never
// been written fails with ErrCollectionNotFound.
type Store interface {
	AddDocuments(ctx context.Context, collectionID string, docs []Document) error
	Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]Result, error)
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Result is a retrieved document with its similarity to the query embedding.
// Results are ordered by descending similarity.
type Result struct {
	Document
	Similarity float32 `json:"similarity"`
}
