package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/clause/internal/core/domain"
)

func TestNewChunkStore(t *testing.T) {
	store := NewChunkStore()
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())
}

func TestChunkStore_AppendReturnsFirstPosition(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	first, err := store.Append(ctx, []domain.Chunk{{ID: "a"}, {ID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, 0, first)

	first, err = store.Append(ctx, []domain.Chunk{{ID: "c"}})
	require.NoError(t, err)
	assert.Equal(t, 2, first)
	assert.Equal(t, 3, store.Len())

	got, err := store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "c", got.ID)
}

func TestChunkStore_AppendEmpty(t *testing.T) {
	store := NewChunkStore()

	first, err := store.Append(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, store.Len())
}

func TestChunkStore_GetOutOfRange(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	_, err := store.Append(ctx, []domain.Chunk{{ID: "a"}})
	require.NoError(t, err)

	_, err = store.Get(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_MetadataIsCopied(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	meta := map[string]any{"chunk_type": "paragraph"}
	_, err := store.Append(ctx, []domain.Chunk{{ID: "a", Metadata: meta}})
	require.NoError(t, err)

	meta["chunk_type"] = "changed"
	got, err := store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "paragraph", got.Metadata["chunk_type"])

	got.Metadata["chunk_type"] = "mutated"
	again, err := store.Get(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "paragraph", again.Metadata["chunk_type"])
}

func TestChunkStore_Close(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	_, err := store.Append(ctx, []domain.Chunk{{ID: "a"}})
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Get(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	_, err = store.Append(ctx, []domain.Chunk{{ID: "b"}})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.Equal(t, 0, store.Len())
}

func TestChunkStore_ConcurrentAccess(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Append(ctx, []domain.Chunk{{ID: "x"}})
		}()
		go func() {
			defer wg.Done()
			_ = store.Len()
			_, _ = store.Get(ctx, 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, store.Len())
}

func TestFactory(t *testing.T) {
	store, err := Factory()()
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}
