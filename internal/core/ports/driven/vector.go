package driven

import (
	"context"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// VectorHit is a similarity search result from the ANN index.
type VectorHit struct {
	// NumericID is the matched point's numeric id.
	NumericID uint64

	// Similarity is the cosine similarity score (1 - distance).
	Similarity float64
}

// VectorIndex is one approximate nearest-neighbour structure for a single
// (tenant, modality, dimension, space) tuple.
type VectorIndex interface {
	// Add appends points to the live structure and marks the index dirty.
	Add(ctx context.Context, vectors [][]float32, ids []uint64) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of stored points.
	Len() int

	// Flush persists the index immediately if dirty.
	Flush() error
}

// IndexProvider hands out long-lived VectorIndex instances. Repeated calls
// with the same key must return the same instance (idempotent load).
type IndexProvider interface {
	// LoadOrCreate loads a persisted index from disk or creates a new one.
	LoadOrCreate(ctx context.Context, tenantID string, modality domain.Modality, dimension int) (VectorIndex, error)

	// FlushAll persists every dirty index. Used on shutdown.
	FlushAll() error
}
