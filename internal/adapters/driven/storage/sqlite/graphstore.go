package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// graphStore implements driven.GraphStore.
type graphStore struct {
	store *Store
}

var _ driven.GraphStore = (*graphStore)(nil)

// GetOrCreateEntity returns the entity for (tenant, value), creating it
// on first sight. The type recorded at creation wins; later mentions
// with a different type do not rewrite it.
func (s *graphStore) GetOrCreateEntity(ctx context.Context, tenantID string, typ domain.EntityType, value string) (*domain.Entity, error) {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO entities (id, tenant_id, type, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, value) DO NOTHING
	`, uuid.New().String(), tenantID, string(typ), value)
	if err != nil {
		return nil, fmt.Errorf("inserting entity: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, type, value
		FROM entities WHERE tenant_id = ? AND value = ?
	`, tenantID, value)

	var ent domain.Entity
	var entType string
	if err := row.Scan(&ent.ID, &ent.TenantID, &entType, &ent.Value); err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	ent.Type = domain.EntityType(entType)
	return &ent, nil
}

// IncrementLink inserts or increments the directed link weight.
func (s *graphStore) IncrementLink(ctx context.Context, tenantID, sourceID, targetID string, delta int64) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO entity_links (tenant_id, source_id, target_id, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, source_id, target_id) DO UPDATE SET
			weight = weight + excluded.weight
	`, tenantID, sourceID, targetID, delta)
	if err != nil {
		return fmt.Errorf("incrementing link: %w", err)
	}
	return nil
}

// SaveChunkEntity records an entity occurrence in a chunk. Re-ingesting
// the same association accumulates the frequency.
func (s *graphStore) SaveChunkEntity(ctx context.Context, assoc *domain.ChunkEntity) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chunk_entities (tenant_id, chunk_id, entity_id, frequency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id, chunk_id, entity_id) DO UPDATE SET
			frequency = frequency + excluded.frequency
	`, assoc.TenantID, assoc.ChunkID, assoc.EntityID, assoc.Frequency)
	if err != nil {
		return fmt.Errorf("saving chunk entity: %w", err)
	}
	return nil
}

// EntitiesForChunks returns the chunk-entity associations for a set of
// chunks within the tenant.
func (s *graphStore) EntitiesForChunks(ctx context.Context, tenantID string, chunkIDs []string) ([]domain.ChunkEntity, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(chunkIDs)+1)
	args = append(args, tenantID)
	for _, id := range chunkIDs {
		args = append(args, id)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT tenant_id, chunk_id, entity_id, frequency
		FROM chunk_entities
		WHERE tenant_id = ? AND chunk_id IN (`+placeholders(len(chunkIDs))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunk entities: %w", err)
	}
	defer rows.Close()

	var assocs []domain.ChunkEntity //nolint:prealloc // size unknown from query
	for rows.Next() {
		var a domain.ChunkEntity
		if err := rows.Scan(&a.TenantID, &a.ChunkID, &a.EntityID, &a.Frequency); err != nil {
			return nil, fmt.Errorf("scanning chunk entity: %w", err)
		}
		assocs = append(assocs, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk entities: %w", err)
	}
	return assocs, nil
}

// Centrality returns the sum of outgoing link weights for an entity.
// An unlinked or unknown entity has centrality zero.
func (s *graphStore) Centrality(ctx context.Context, tenantID, entityID string) (int64, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(weight), 0)
		FROM entity_links WHERE tenant_id = ? AND source_id = ?
	`, tenantID, entityID)

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("scanning centrality: %w", err)
	}
	return total, nil
}

// TopEntities returns the n entities with the highest total outgoing
// weight across the tenant.
func (s *graphStore) TopEntities(ctx context.Context, tenantID string, n int) ([]domain.EntityRank, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.id, e.tenant_id, e.type, e.value, COALESCE(SUM(l.weight), 0) AS total
		FROM entities e
		LEFT JOIN entity_links l ON l.tenant_id = e.tenant_id AND l.source_id = e.id
		WHERE e.tenant_id = ?
		GROUP BY e.id
		ORDER BY total DESC, e.value
		LIMIT ?
	`, tenantID, n)
	if err != nil {
		return nil, fmt.Errorf("querying top entities: %w", err)
	}
	defer rows.Close()

	var ranks []domain.EntityRank //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.EntityRank
		var entType string
		if err := rows.Scan(&r.Entity.ID, &r.Entity.TenantID, &entType, &r.Entity.Value, &r.TotalWeight); err != nil {
			return nil, fmt.Errorf("scanning entity rank: %w", err)
		}
		r.Entity.Type = domain.EntityType(entType)
		ranks = append(ranks, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity ranks: %w", err)
	}
	return ranks, nil
}
