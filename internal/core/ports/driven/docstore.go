package driven

import (
	"context"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// DocumentStore persists documents, chunks, embeddings and the vector
// index size counters. Backed by SQLite for metadata storage.
//
// Every operation is scoped by tenant id. Implementations must treat a
// foreign-tenant id exactly like a missing id: domain.ErrNotFound for
// lookups, a no-op for deletes, an empty slice for bulk fetches.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by id within the tenant.
	GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error)

	// ListDocuments returns all documents of a tenant.
	ListDocuments(ctx context.Context, tenantID string) ([]domain.Document, error)

	// DeleteDocument removes a document and cascades to its chunks,
	// embeddings and chunk-entity rows. A foreign-tenant id is a no-op.
	DeleteDocument(ctx context.Context, tenantID, id string) error

	// SaveChunk stores a chunk.
	SaveChunk(ctx context.Context, chunk *domain.Chunk) error

	// GetChunksByIDs bulk-fetches chunks by id, returning only rows that
	// belong to the tenant. Unknown or foreign ids are silently omitted.
	GetChunksByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Chunk, error)

	// GetChunksByDocument returns a document's chunks in position order.
	GetChunksByDocument(ctx context.Context, tenantID, documentID string) ([]domain.Chunk, error)

	// AddChunkFeedback accumulates an engagement delta on a chunk.
	AddChunkFeedback(ctx context.Context, tenantID, chunkID string, delta float64) error

	// GetEmbedding retrieves the embedding for a chunk, or ErrNotFound.
	GetEmbedding(ctx context.Context, tenantID, chunkID string) (*domain.Embedding, error)

	// UpsertEmbedding inserts or replaces the embedding keyed by chunk id.
	UpsertEmbedding(ctx context.Context, emb *domain.Embedding) error

	// ResolveNumericIDs maps ANN numeric ids back to chunk ids using the
	// tenant's embedding rows. Unresolvable ids are omitted from the map.
	ResolveNumericIDs(ctx context.Context, tenantID string, modality domain.Modality, numericIDs []uint64) (map[uint64]string, error)

	// BumpIndexSize increments the (tenant, modality) size counter.
	BumpIndexSize(ctx context.Context, tenantID string, modality domain.Modality, dimension int) error

	// IndexStatuses returns the per-modality counters for a tenant.
	IndexStatuses(ctx context.Context, tenantID string) ([]domain.IndexStatus, error)
}
