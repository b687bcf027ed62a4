package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// GraphStore is a map-backed driven.GraphStore. Safe for concurrent use.
type GraphStore struct {
	mu       sync.RWMutex
	entities map[string]domain.Entity // keyed by tenant|value
	byID     map[string]domain.Entity
	links    map[string]int64 // keyed by tenant|source|target
	assocs   map[string]domain.ChunkEntity
}

var _ driven.GraphStore = (*GraphStore)(nil)

// NewGraphStore creates an empty in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		entities: make(map[string]domain.Entity),
		byID:     make(map[string]domain.Entity),
		links:    make(map[string]int64),
		assocs:   make(map[string]domain.ChunkEntity),
	}
}

// GetOrCreateEntity returns the entity for (tenant, value), creating it
// if absent. The type of an existing entity is not rewritten.
func (s *GraphStore) GetOrCreateEntity(_ context.Context, tenantID string, typ domain.EntityType, value string) (*domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + "|" + value
	if ent, ok := s.entities[key]; ok {
		return &ent, nil
	}
	ent := domain.Entity{ID: uuid.New().String(), TenantID: tenantID, Type: typ, Value: value}
	s.entities[key] = ent
	s.byID[ent.ID] = ent
	return &ent, nil
}

// IncrementLink inserts or increments the directed link weight.
func (s *GraphStore) IncrementLink(_ context.Context, tenantID, sourceID, targetID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[tenantID+"|"+sourceID+"|"+targetID] += delta
	return nil
}

// SaveChunkEntity records an entity occurrence in a chunk, accumulating
// frequency on repeat.
func (s *GraphStore) SaveChunkEntity(_ context.Context, assoc *domain.ChunkEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assoc.TenantID + "|" + assoc.ChunkID + "|" + assoc.EntityID
	if existing, ok := s.assocs[key]; ok {
		existing.Frequency += assoc.Frequency
		s.assocs[key] = existing
		return nil
	}
	s.assocs[key] = *assoc
	return nil
}

// deleteChunkAssociations drops all associations of a chunk. Entities
// and links survive, matching the sqlite cascade.
func (s *GraphStore) deleteChunkAssociations(tenantID, chunkID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, assoc := range s.assocs {
		if assoc.TenantID == tenantID && assoc.ChunkID == chunkID {
			delete(s.assocs, key)
		}
	}
}

// EntitiesForChunks returns chunk-entity associations for the chunks.
func (s *GraphStore) EntitiesForChunks(_ context.Context, tenantID string, chunkIDs []string) ([]domain.ChunkEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		wanted[id] = struct{}{}
	}

	var out []domain.ChunkEntity
	for _, assoc := range s.assocs {
		if assoc.TenantID != tenantID {
			continue
		}
		if _, ok := wanted[assoc.ChunkID]; ok {
			out = append(out, assoc)
		}
	}
	return out, nil
}

// Centrality returns the sum of outgoing link weights for an entity.
func (s *GraphStore) Centrality(_ context.Context, tenantID, entityID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := tenantID + "|" + entityID + "|"
	var total int64
	for key, weight := range s.links {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			total += weight
		}
	}
	return total, nil
}

// TopEntities returns the n entities with the highest total outgoing
// weight across the tenant.
func (s *GraphStore) TopEntities(_ context.Context, tenantID string, n int) ([]domain.EntityRank, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ranks []domain.EntityRank
	for _, ent := range s.byID {
		if ent.TenantID != tenantID {
			continue
		}
		prefix := tenantID + "|" + ent.ID + "|"
		var total int64
		for key, weight := range s.links {
			if len(key) > len(prefix) && key[:len(prefix)] == prefix {
				total += weight
			}
		}
		ranks = append(ranks, domain.EntityRank{Entity: ent, TotalWeight: total})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].TotalWeight != ranks[j].TotalWeight {
			return ranks[i].TotalWeight > ranks[j].TotalWeight
		}
		return ranks[i].Entity.Value < ranks[j].Entity.Value
	})
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks, nil
}
