package chromem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshbazaar/assistant/vector"
)

func newTestStore(t *testing.T) vector.Store {
	t.Helper()

	store, err := NewStore(vector.Config{Persistent: false})
	require.NoError(t, err)

	return store
}

func TestCreateCollection(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	_, err := store.CreateCollection("products", 3)
	assert.NoError(err)

	_, err = store.CreateCollection("products", 3)
	assert.ErrorIs(err, vector.ErrAlreadyExists)
}

func TestGetCollectionNotFound(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	_, err := store.GetCollection("missing")
	assert.ErrorIs(err, vector.ErrNotFound)
}

func TestDropCollectionIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	assert.NoError(store.DropCollection("missing"))

	_, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	assert.NoError(store.DropCollection("products"))
	assert.NoError(store.DropCollection("products"))

	_, err = store.GetCollection("products")
	assert.ErrorIs(err, vector.ErrNotFound)
}

func TestUpsertReplacesByID(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	ctx := context.Background()

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_1", Content: "old profile", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_1", Content: "new profile", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	assert.Equal(1, collection.Count())

	results, err := collection.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal("new profile", results[0].Content)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	ctx := context.Background()

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_1", Content: "profile", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_2", Content: "short", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(err, vector.ErrDimensionMismatch)

	assert.Equal(1, collection.Count(), "a rejected batch must not change the collection")
}

func TestQueryDimensionMismatch(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	ctx := context.Background()

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_1", Content: "profile", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	_, err = collection.Query(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(err, vector.ErrDimensionMismatch)
}

func TestQueryClampsToCollectionSize(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	ctx := context.Background()

	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_1", Content: "tomatoes", Embedding: []float32{1, 0, 0}},
		{ID: "product_2", Content: "tires", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := collection.Query(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)

	assert.Len(results, 2)
	assert.Equal("product_1", results[0].ID, "nearest document ranks first")
}

func TestQueryTieBreaksByID(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	ctx := context.Background()

	// Identical embeddings produce identical similarities.
	err = collection.Upsert(ctx, []vector.Document{
		{ID: "product_9", Content: "nine", Embedding: []float32{1, 0, 0}},
		{ID: "product_1", Content: "one", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	results, err := collection.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal("product_1", results[0].ID)
	assert.Equal("product_9", results[1].ID)
}

func TestQueryEmptyCollection(t *testing.T) {
	assert := assert.New(t)
	store := newTestStore(t)

	collection, err := store.CreateCollection("products", 3)
	require.NoError(t, err)

	results, err := collection.Query(context.Background(), []float32{1, 0, 0}, 3)
	assert.NoError(err)
	assert.Empty(results)
}
