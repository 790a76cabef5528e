package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docuchat/docuchat/ai/mock"
	"github.com/docuchat/docuchat/vector"
)

func seedDocuments(contents ...string) []vector.Document {
	docs := make([]vector.Document, len(contents))
	for i, content := range contents {
		docs[i] = vector.Document{
			ID:        "doc-" + string(rune('a'+i)),
			Content:   content,
			Embedding: mock.Embedding(content),
			Metadata:  map[string]string{"owner_id": "user-1"},
		}
	}

	return docs
}

func TestStoreQueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(vector.Config{})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	docs := seedDocuments(
		"The sky is blue on clear days.",
		"Rain falls mostly in autumn.",
		"Mountains rise far to the north.",
	)

	if err := store.AddDocuments(ctx, "abc-1", docs); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	results, err := store.Query(ctx, "abc-1", mock.Embedding("what color is the sky"), 2)
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	assert.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "sky is blue")
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
	assert.Equal(t, "user-1", results[0].Metadata["owner_id"])
}

func TestStoreQueryUnknownCollection(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(vector.Config{})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	_, err = store.Query(ctx, "unknown-99", mock.Embedding("anything"), 2)
	assert.ErrorIs(t, err, vector.ErrCollectionNotFound)
}

func TestStoreQueryClampsK(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(vector.Config{})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	docs := seedDocuments("The sky is blue.")

	if err := store.AddDocuments(ctx, "abc-1", docs); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	results, err := store.Query(ctx, "abc-1", mock.Embedding("sky"), 10)
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	assert.Len(t, results, 1)
}

func TestStoreAddDocumentsUpserts(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(vector.Config{})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	docs := seedDocuments("The sky is blue.")

	if err := store.AddDocuments(ctx, "abc-1", docs); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	if err := store.AddDocuments(ctx, "abc-1", docs); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	results, err := store.Query(ctx, "abc-1", mock.Embedding("sky"), 10)
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	assert.Len(t, results, 1, "same document id must not duplicate")
}

func TestStoreCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(vector.Config{})
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	if err := store.AddDocuments(ctx, "ocean-1", seedDocuments("The ocean is deep.")); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	if err := store.AddDocuments(ctx, "desert-1", seedDocuments("The desert is dry.")); err != nil {
		assert.Fail(t, err.Error())
		return
	}

	results, err := store.Query(ctx, "ocean-1", mock.Embedding("desert"), 10)
	if err != nil {
		assert.Fail(t, err.Error())
		return
	}

	assert.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "ocean")
}
