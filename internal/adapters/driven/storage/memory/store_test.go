package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

func TestDeleteDocumentCascadesChunkEntities(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentStore()
	graph := NewGraphStore()
	docs.LinkGraph(graph)

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "doc-1", TenantID: "t1"}))
	require.NoError(t, docs.SaveChunk(ctx, &domain.Chunk{
		ID: "chunk-1", TenantID: "t1", DocumentID: "doc-1", Modality: domain.ModalityText,
	}))

	ent, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme")
	require.NoError(t, err)
	require.NoError(t, graph.SaveChunkEntity(ctx, &domain.ChunkEntity{
		TenantID: "t1", ChunkID: "chunk-1", EntityID: ent.ID, Frequency: 2,
	}))

	require.NoError(t, docs.DeleteDocument(ctx, "t1", "doc-1"))

	assocs, err := graph.EntitiesForChunks(ctx, "t1", []string{"chunk-1"})
	require.NoError(t, err)
	assert.Empty(t, assocs)

	// The entity itself survives the cascade.
	again, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme")
	require.NoError(t, err)
	assert.Equal(t, ent.ID, again.ID)
}

func TestDeleteDocumentForeignTenantKeepsAssociations(t *testing.T) {
	ctx := context.Background()
	docs := NewDocumentStore()
	graph := NewGraphStore()
	docs.LinkGraph(graph)

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "doc-1", TenantID: "t1"}))
	require.NoError(t, docs.SaveChunk(ctx, &domain.Chunk{
		ID: "chunk-1", TenantID: "t1", DocumentID: "doc-1", Modality: domain.ModalityText,
	}))

	ent, err := graph.GetOrCreateEntity(ctx, "t1", domain.EntityOrg, "Acme")
	require.NoError(t, err)
	require.NoError(t, graph.SaveChunkEntity(ctx, &domain.ChunkEntity{
		TenantID: "t1", ChunkID: "chunk-1", EntityID: ent.ID, Frequency: 1,
	}))

	require.NoError(t, docs.DeleteDocument(ctx, "t2", "doc-1"))

	assocs, err := graph.EntitiesForChunks(ctx, "t1", []string{"chunk-1"})
	require.NoError(t, err)
	assert.Len(t, assocs, 1)
}
