package driving

import (
	"context"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// QueryService answers retrieval queries with hybrid-ranked results.
type QueryService interface {
	// Query embeds the query text, retrieves 5k candidates via k-NN and
	// reranks them to the top k. A zero weights value selects defaults.
	Query(ctx context.Context, tenantID, queryText string, k int, weights domain.RerankWeights) ([]domain.RankedResult, error)

	// RecordFeedback accumulates an engagement delta on a chunk.
	RecordFeedback(ctx context.Context, tenantID, chunkID string, delta float64) error

	// Status reports per-modality index sizes for capacity planning.
	Status(ctx context.Context, tenantID string) ([]domain.IndexStatus, error)
}
