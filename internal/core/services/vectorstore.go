package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/index/hnsw"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// VectorStore is the sole owner of embedding persistence and ANN index
// mutation. Everything else goes through it.
type VectorStore struct {
	docStore driven.DocumentStore
	indexes  driven.IndexProvider
}

// NewVectorStore creates a vector store.
func NewVectorStore(docStore driven.DocumentStore, indexes driven.IndexProvider) *VectorStore {
	return &VectorStore{
		docStore: docStore,
		indexes:  indexes,
	}
}

// UpsertEmbedding persists a chunk's vector and appends it to the
// tenant's ANN index. Re-ingesting a chunk replaces the stored row
// without bumping the size counter; the superseded index entry goes
// stale and is filtered at query time.
func (s *VectorStore) UpsertEmbedding(ctx context.Context, tenantID, chunkID string, vector []float32, model string, modality domain.Modality) error {
	if tenantID == "" || chunkID == "" || len(vector) == 0 || !modality.Valid() {
		return fmt.Errorf("upsert embedding: %w", domain.ErrInvalidInput)
	}

	existing, err := s.docStore.GetEmbedding(ctx, tenantID, chunkID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("checking existing embedding: %w", err)
	}
	isNew := existing == nil

	numericID := hnsw.NumericID(chunkID)
	emb := &domain.Embedding{
		ChunkID:   chunkID,
		TenantID:  tenantID,
		Modality:  modality,
		Model:     model,
		Dimension: len(vector),
		NumericID: numericID,
		Vector:    vector,
	}
	if err := s.docStore.UpsertEmbedding(ctx, emb); err != nil {
		return fmt.Errorf("persisting embedding: %w", err)
	}

	index, err := s.indexes.LoadOrCreate(ctx, tenantID, modality, len(vector))
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	if err := index.Add(ctx, [][]float32{vector}, []uint64{numericID}); err != nil {
		return fmt.Errorf("adding to index: %w", err)
	}

	if isNew {
		if err := s.docStore.BumpIndexSize(ctx, tenantID, modality, len(vector)); err != nil {
			return fmt.Errorf("bumping index size: %w", err)
		}
	}

	logger.Debug("Upserted %s embedding for chunk %s (dim=%d, new=%t)",
		modality, chunkID, len(vector), isNew)
	return nil
}

// KNN searches the tenant's index and maps numeric ids back to chunk
// ids. Hits whose numeric id cannot be resolved (stale entries after
// deletion, hash collisions) are silently dropped.
func (s *VectorStore) KNN(ctx context.Context, tenantID string, modality domain.Modality, query []float32, k int) ([]domain.Candidate, error) {
	if len(query) == 0 || k <= 0 {
		return nil, nil
	}

	index, err := s.indexes.LoadOrCreate(ctx, tenantID, modality, len(query))
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	if index.Len() == 0 {
		return nil, nil
	}

	hits, err := index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	numericIDs := make([]uint64, len(hits))
	for i, hit := range hits {
		numericIDs[i] = hit.NumericID
	}
	resolved, err := s.docStore.ResolveNumericIDs(ctx, tenantID, modality, numericIDs)
	if err != nil {
		return nil, fmt.Errorf("resolving numeric ids: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(hits))
	for _, hit := range hits {
		chunkID, ok := resolved[hit.NumericID]
		if !ok {
			logger.Debug("Dropping unresolved numeric id %d", hit.NumericID)
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ChunkID:     chunkID,
			VectorScore: hit.Similarity,
		})
	}

	logger.Debug("k-NN: %d hits, %d resolved", len(hits), len(candidates))
	return candidates, nil
}

// GetChunksByIDs bulk-fetches chunks scoped to the requesting tenant.
func (s *VectorStore) GetChunksByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Chunk, error) {
	return s.docStore.GetChunksByIDs(ctx, tenantID, ids)
}
