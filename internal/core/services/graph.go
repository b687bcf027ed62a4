package services

import (
	"context"
	"fmt"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// GraphService maintains the entity co-occurrence graph and exposes
// centrality-style scoring for the reranker.
type GraphService struct {
	graphStore driven.GraphStore
}

// NewGraphService creates a graph service.
func NewGraphService(graphStore driven.GraphStore) *GraphService {
	return &GraphService{graphStore: graphStore}
}

// UpsertEntitiesWithLinks gets-or-creates each mentioned entity, records
// its occurrence in the chunk, and increments a bidirectional link for
// every unordered pair of distinct entities mentioned together.
func (s *GraphService) UpsertEntitiesWithLinks(ctx context.Context, tenantID, chunkID string, mentions []domain.EntityMention) error {
	if len(mentions) == 0 {
		return nil
	}

	entities := make([]*domain.Entity, 0, len(mentions))
	for _, m := range mentions {
		ent, err := s.graphStore.GetOrCreateEntity(ctx, tenantID, m.Type, m.Value)
		if err != nil {
			return fmt.Errorf("upserting entity %q: %w", m.Value, err)
		}
		entities = append(entities, ent)

		if err := s.graphStore.SaveChunkEntity(ctx, &domain.ChunkEntity{
			TenantID:  tenantID,
			ChunkID:   chunkID,
			EntityID:  ent.ID,
			Frequency: m.Frequency,
		}); err != nil {
			return fmt.Errorf("saving chunk entity %q: %w", m.Value, err)
		}
	}

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if entities[i].ID == entities[j].ID {
				continue
			}
			if err := s.graphStore.IncrementLink(ctx, tenantID, entities[i].ID, entities[j].ID, 1); err != nil {
				return fmt.Errorf("incrementing link: %w", err)
			}
			if err := s.graphStore.IncrementLink(ctx, tenantID, entities[j].ID, entities[i].ID, 1); err != nil {
				return fmt.Errorf("incrementing link: %w", err)
			}
		}
	}

	logger.Debug("Graph: %d entities, chunk %s", len(entities), chunkID)
	return nil
}

// ChunkGraphScores computes a centrality proxy per chunk: the summed
// centrality of the entities it mentions, weighted by mention frequency.
func (s *GraphService) ChunkGraphScores(ctx context.Context, tenantID string, chunkIDs []string) (map[string]float64, error) {
	assocs, err := s.graphStore.EntitiesForChunks(ctx, tenantID, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching chunk entities: %w", err)
	}

	scores := make(map[string]float64, len(chunkIDs))
	centrality := make(map[string]int64)
	for _, assoc := range assocs {
		c, ok := centrality[assoc.EntityID]
		if !ok {
			c, err = s.graphStore.Centrality(ctx, tenantID, assoc.EntityID)
			if err != nil {
				return nil, fmt.Errorf("computing centrality: %w", err)
			}
			centrality[assoc.EntityID] = c
		}
		scores[assoc.ChunkID] += float64(c) * float64(assoc.Frequency)
	}
	return scores, nil
}

// TopEntities returns the n most central entities of the tenant.
func (s *GraphService) TopEntities(ctx context.Context, tenantID string, n int) ([]domain.EntityRank, error) {
	return s.graphStore.TopEntities(ctx, tenantID, n)
}
