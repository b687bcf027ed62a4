package driven

import (
	"context"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// GraphStore persists entities and their weighted co-occurrence links.
// Entities are shared across documents within a tenant; weights only
// increase outside of deletion cascades.
type GraphStore interface {
	// GetOrCreateEntity returns the entity for (tenant, value), creating
	// it if absent. The type of an existing entity is not rewritten.
	GetOrCreateEntity(ctx context.Context, tenantID string, typ domain.EntityType, value string) (*domain.Entity, error)

	// IncrementLink inserts or increments the directed link weight.
	IncrementLink(ctx context.Context, tenantID, sourceID, targetID string, delta int64) error

	// SaveChunkEntity records an entity occurrence in a chunk.
	SaveChunkEntity(ctx context.Context, assoc *domain.ChunkEntity) error

	// EntitiesForChunks returns the chunk-entity associations for a set of
	// chunks within the tenant.
	EntitiesForChunks(ctx context.Context, tenantID string, chunkIDs []string) ([]domain.ChunkEntity, error)

	// Centrality returns the sum of outgoing link weights for an entity.
	Centrality(ctx context.Context, tenantID, entityID string) (int64, error)

	// TopEntities returns the n entities with the highest total outgoing
	// weight across the tenant.
	TopEntities(ctx context.Context, tenantID string, n int) ([]domain.EntityRank, error)
}
