// Package memory provides in-memory implementations of the storage
// ports, used by service tests and as a lightweight fallback.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// DocumentStore is a map-backed driven.DocumentStore. Safe for
// concurrent use.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document  // keyed by document id
	chunks     map[string]domain.Chunk     // keyed by chunk id
	embeddings map[string]domain.Embedding // keyed by chunk id
	sizes      map[string]domain.IndexStatus
	graph      *GraphStore
}

var _ driven.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]domain.Embedding),
		sizes:      make(map[string]domain.IndexStatus),
	}
}

// SaveDocument stores a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by id within the tenant.
func (s *DocumentStore) GetDocument(_ context.Context, tenantID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents of a tenant in creation order.
func (s *DocumentStore) ListDocuments(_ context.Context, tenantID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.TenantID == tenantID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

// LinkGraph attaches a graph store so document deletion cascades to
// chunk-entity rows, mirroring the sqlite foreign keys.
func (s *DocumentStore) LinkGraph(graph *GraphStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = graph
}

// DeleteDocument removes a document and cascades to its chunks,
// embeddings and, when a graph store is linked, chunk-entity rows.
// A foreign-tenant id is a no-op.
func (s *DocumentStore) DeleteDocument(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.TenantID != tenantID {
		return nil
	}
	delete(s.documents, id)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			delete(s.chunks, chunkID)
			delete(s.embeddings, chunkID)
			if s.graph != nil {
				s.graph.deleteChunkAssociations(tenantID, chunkID)
			}
		}
	}
	return nil
}

// SaveChunk stores a chunk.
func (s *DocumentStore) SaveChunk(_ context.Context, chunk *domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}
	s.chunks[chunk.ID] = *chunk
	return nil
}

// GetChunksByIDs bulk-fetches chunks, silently omitting unknown or
// foreign-tenant ids.
func (s *DocumentStore) GetChunksByIDs(_ context.Context, tenantID string, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, id := range ids {
		if chunk, ok := s.chunks[id]; ok && chunk.TenantID == tenantID {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// GetChunksByDocument returns a document's chunks in position order.
func (s *DocumentStore) GetChunksByDocument(_ context.Context, tenantID, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []domain.Chunk
	for _, chunk := range s.chunks {
		if chunk.TenantID == tenantID && chunk.DocumentID == documentID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks, nil
}

// AddChunkFeedback accumulates an engagement delta on a chunk.
func (s *DocumentStore) AddChunkFeedback(_ context.Context, tenantID, chunkID string, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunk, ok := s.chunks[chunkID]
	if !ok || chunk.TenantID != tenantID {
		return domain.ErrNotFound
	}
	chunk.FeedbackScore += delta
	s.chunks[chunkID] = chunk
	return nil
}

// GetEmbedding retrieves the embedding for a chunk.
func (s *DocumentStore) GetEmbedding(_ context.Context, tenantID, chunkID string) (*domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emb, ok := s.embeddings[chunkID]
	if !ok || emb.TenantID != tenantID {
		return nil, domain.ErrNotFound
	}
	return &emb, nil
}

// UpsertEmbedding inserts or replaces the embedding keyed by chunk id.
func (s *DocumentStore) UpsertEmbedding(_ context.Context, emb *domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if emb.UpdatedAt.IsZero() {
		emb.UpdatedAt = time.Now().UTC()
	}
	s.embeddings[emb.ChunkID] = *emb
	return nil
}

// ResolveNumericIDs maps ANN numeric ids back to chunk ids.
func (s *DocumentStore) ResolveNumericIDs(_ context.Context, tenantID string, modality domain.Modality, numericIDs []uint64) (map[uint64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uint64]struct{}, len(numericIDs))
	for _, id := range numericIDs {
		wanted[id] = struct{}{}
	}

	resolved := make(map[uint64]string, len(numericIDs))
	for chunkID, emb := range s.embeddings {
		if emb.TenantID != tenantID || emb.Modality != modality {
			continue
		}
		if _, ok := wanted[emb.NumericID]; ok {
			resolved[emb.NumericID] = chunkID
		}
	}
	return resolved, nil
}

// BumpIndexSize increments the (tenant, modality) size counter.
func (s *DocumentStore) BumpIndexSize(_ context.Context, tenantID string, modality domain.Modality, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + "|" + string(modality)
	st, ok := s.sizes[key]
	if !ok {
		st = domain.IndexStatus{TenantID: tenantID, Modality: modality}
	}
	st.Dimension = dimension
	st.Size++
	st.UpdatedAt = time.Now().UTC()
	s.sizes[key] = st
	return nil
}

// IndexStatuses returns the per-modality counters for a tenant.
func (s *DocumentStore) IndexStatuses(_ context.Context, tenantID string) ([]domain.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var statuses []domain.IndexStatus
	for _, st := range s.sizes {
		if st.TenantID == tenantID {
			statuses = append(statuses, st)
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Modality < statuses[j].Modality })
	return statuses, nil
}
