package chromem

import (
	"context"

	"github.com/philippgille/chromem-go"

	"github.com/docuchat/docuchat/vector"
)

func NewChromemStore(cfg vector.Config) (vector.Store, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemStore{db}, nil
}

type chromemStore struct {
	db *chromem.DB
}

func (store *chromemStore) AddDocuments(ctx context.Context, collectionID string, docs []vector.Document) error {
	c, err := store.db.GetOrCreateCollection(collectionID, nil, nil)
	if err != nil {
		return err
	}

	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	return c.AddDocuments(ctx, documents, 1)
}

func (store *chromemStore) Query(ctx context.Context, collectionID string, embedding []float32, k int) ([]vector.Result, error) {
	c := store.db.GetCollection(collectionID, nil)
	if c == nil {
		return nil, vector.ErrCollectionNotFound
	}

	if k > c.Count() {
		k = c.Count()
	}

	results, err := c.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Result, len(results))
	for i, result := range results {
		docs[i] = vector.Result{
			Document: vector.Document{
				ID:        result.ID,
				Metadata:  result.Metadata,
				Embedding: result.Embedding,
				Content:   result.Content,
			},
			Similarity: result.Similarity,
		}
	}

	return docs, nil
}
