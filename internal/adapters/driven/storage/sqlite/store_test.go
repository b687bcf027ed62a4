package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedDocument(t *testing.T, store *Store, tenantID, docID string) {
	t.Helper()
	err := store.DocumentStore().SaveDocument(context.Background(), &domain.Document{
		ID:        docID,
		TenantID:  tenantID,
		SourceURI: "file:///tmp/" + docID,
		Metadata:  map[string]any{"origin": "test"},
	})
	require.NoError(t, err)
}

func seedChunk(t *testing.T, store *Store, tenantID, docID, chunkID string) {
	t.Helper()
	err := store.DocumentStore().SaveChunk(context.Background(), &domain.Chunk{
		ID:         chunkID,
		TenantID:   tenantID,
		DocumentID: docID,
		Modality:   domain.ModalityText,
		Content:    "content of " + chunkID,
	})
	require.NoError(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "t1", "doc-1")

	doc, err := store.DocumentStore().GetDocument(ctx, "t1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "t1", doc.TenantID)
	assert.Equal(t, map[string]any{"origin": "test"}, doc.Metadata)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestTenantIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedDocument(t, store, "t1", "doc-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-1")

	_, err := store.DocumentStore().GetDocument(ctx, "t2", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.DocumentStore().GetChunksByIDs(ctx, "t2", []string{"chunk-1"})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	docs, err := store.DocumentStore().ListDocuments(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Deleting through the wrong tenant must not touch the row.
	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "t2", "doc-1"))
	_, err = store.DocumentStore().GetDocument(ctx, "t1", "doc-1")
	assert.NoError(t, err)
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()
	graph := store.GraphStore()

	seedDocument(t, store, "t1", "doc-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-1")

	require.NoError(t, docs.UpsertEmbedding(ctx, &domain.Embedding{
		ChunkID:   "chunk-1",
		TenantID:  "t1",
		Modality:  domain.ModalityText,
		Model:     "test-model",
		Dimension: 2,
		NumericID: 42,
		Vector:    []float32{0.6, 0.8},
	}))

	ent, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme Corp")
	require.NoError(t, err)
	require.NoError(t, graph.SaveChunkEntity(ctx, &domain.ChunkEntity{
		TenantID: "t1", ChunkID: "chunk-1", EntityID: ent.ID, Frequency: 2,
	}))

	require.NoError(t, docs.DeleteDocument(ctx, "t1", "doc-1"))

	chunks, err := docs.GetChunksByDocument(ctx, "t1", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = docs.GetEmbedding(ctx, "t1", "chunk-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assocs, err := graph.EntitiesForChunks(ctx, "t1", []string{"chunk-1"})
	require.NoError(t, err)
	assert.Empty(t, assocs)

	// The entity itself survives; it may be referenced elsewhere.
	got, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityMisc, "Acme Corp")
	require.NoError(t, err)
	assert.Equal(t, ent.ID, got.ID)
}

func TestUpsertEmbeddingReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	seedDocument(t, store, "t1", "doc-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-1")

	first := &domain.Embedding{
		ChunkID: "chunk-1", TenantID: "t1", Modality: domain.ModalityText,
		Model: "m", Dimension: 2, NumericID: 7, Vector: []float32{1, 0},
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, docs.UpsertEmbedding(ctx, first))

	second := &domain.Embedding{
		ChunkID: "chunk-1", TenantID: "t1", Modality: domain.ModalityText,
		Model: "m", Dimension: 2, NumericID: 7, Vector: []float32{0, 1},
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, docs.UpsertEmbedding(ctx, second))

	got, err := docs.GetEmbedding(ctx, "t1", "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Vector)
	assert.Equal(t, uint64(7), got.NumericID)
}

func TestResolveNumericIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	seedDocument(t, store, "t1", "doc-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-2")

	for i, chunkID := range []string{"chunk-1", "chunk-2"} {
		require.NoError(t, docs.UpsertEmbedding(ctx, &domain.Embedding{
			ChunkID: chunkID, TenantID: "t1", Modality: domain.ModalityText,
			Model: "m", Dimension: 1, NumericID: uint64(i + 1), Vector: []float32{1},
		}))
	}

	resolved, err := docs.ResolveNumericIDs(ctx, "t1", domain.ModalityText, []uint64{1, 2, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{1: "chunk-1", 2: "chunk-2"}, resolved)

	// Foreign tenant resolves nothing.
	resolved, err = docs.ResolveNumericIDs(ctx, "t2", domain.ModalityText, []uint64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestChunkFeedback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	seedDocument(t, store, "t1", "doc-1")
	seedChunk(t, store, "t1", "doc-1", "chunk-1")

	require.NoError(t, docs.AddChunkFeedback(ctx, "t1", "chunk-1", 1))
	require.NoError(t, docs.AddChunkFeedback(ctx, "t1", "chunk-1", 0.5))

	chunks, err := docs.GetChunksByIDs(ctx, "t1", []string{"chunk-1"})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.InDelta(t, 1.5, chunks[0].FeedbackScore, 1e-9)

	err = docs.AddChunkFeedback(ctx, "t1", "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexSizeCounters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	require.NoError(t, docs.BumpIndexSize(ctx, "t1", domain.ModalityText, 384))
	require.NoError(t, docs.BumpIndexSize(ctx, "t1", domain.ModalityText, 384))
	require.NoError(t, docs.BumpIndexSize(ctx, "t1", domain.ModalityImage, 512))

	statuses, err := docs.IndexStatuses(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	// Ordered by modality: image before text.
	assert.Equal(t, domain.ModalityImage, statuses[0].Modality)
	assert.Equal(t, int64(1), statuses[0].Size)
	assert.Equal(t, domain.ModalityText, statuses[1].Modality)
	assert.Equal(t, int64(2), statuses[1].Size)
	assert.Equal(t, 384, statuses[1].Dimension)
}

func TestGetOrCreateEntityKeepsFirstType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	graph := store.GraphStore()

	first, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme Corp")
	require.NoError(t, err)

	second, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityPerson, "Acme Corp")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.EntityOrg, second.Type)

	// Same value under another tenant is a distinct entity.
	other, err := graph.GetOrCreateEntity(ctx, "t2", domain.EntityOrg, "Acme Corp")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestLinkWeightsAndCentrality(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	graph := store.GraphStore()

	a, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme Corp")
	require.NoError(t, err)
	b, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityPerson, "Ada Lovelace")
	require.NoError(t, err)
	c, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityLocation, "Berlin")
	require.NoError(t, err)

	require.NoError(t, graph.IncrementLink(ctx, "t1", a.ID, b.ID, 1))
	require.NoError(t, graph.IncrementLink(ctx, "t1", a.ID, b.ID, 2))
	require.NoError(t, graph.IncrementLink(ctx, "t1", a.ID, c.ID, 1))

	total, err := graph.Centrality(ctx, "t1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	total, err = graph.Centrality(ctx, "t1", c.ID)
	require.NoError(t, err)
	assert.Zero(t, total)

	ranks, err := graph.TopEntities(ctx, "t1", 2)
	require.NoError(t, err)
	require.Len(t, ranks, 2)
	assert.Equal(t, "Acme Corp", ranks[0].Entity.Value)
	assert.Equal(t, int64(4), ranks[0].TotalWeight)

	none, err := graph.TopEntities(ctx, "t1", 0)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out := bytesToFloat32Slice(float32SliceToBytes(in))
	assert.Equal(t, in, out)
}
