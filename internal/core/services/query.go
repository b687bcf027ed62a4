package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driving"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// candidateMultiplier widens the k-NN retrieval so the reranker has
// room to reorder: 5k candidates feed the top-k selection.
const candidateMultiplier = 5

// QueryService answers retrieval queries with hybrid-ranked results.
type QueryService struct {
	docStore    driven.DocumentStore
	vectorStore *VectorStore
	graph       *GraphService
	reranker    *Reranker
	textEncoder driven.TextEncoder
}

// NewQueryService creates a query service.
func NewQueryService(
	docStore driven.DocumentStore,
	vectorStore *VectorStore,
	graph *GraphService,
	reranker *Reranker,
	textEncoder driven.TextEncoder,
) *QueryService {
	return &QueryService{
		docStore:    docStore,
		vectorStore: vectorStore,
		graph:       graph,
		reranker:    reranker,
		textEncoder: textEncoder,
	}
}

// Query embeds the query text, retrieves 5k candidates via k-NN,
// enriches them with graph, feedback and recency signals, and reranks
// to the top k with per-signal breakdowns.
func (s *QueryService) Query(ctx context.Context, tenantID, queryText string, k int, weights domain.RerankWeights) ([]domain.RankedResult, error) {
	logger.Section("Query Execution")
	logger.Debug("Query: %q (tenant %s, k=%d)", queryText, tenantID, k)

	queryText = strings.TrimSpace(queryText)
	if queryText == "" || k <= 0 {
		return nil, nil
	}
	if tenantID == "" {
		return nil, fmt.Errorf("empty tenant id: %w", domain.ErrInvalidInput)
	}

	vectors, err := s.textEncoder.EncodeBatch(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for one query", len(vectors))
	}

	candidates, err := s.vectorStore.KNN(ctx, tenantID, domain.ModalityText, vectors[0], k*candidateMultiplier)
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	chunkIDs := make([]string, len(candidates))
	for i, c := range candidates {
		chunkIDs[i] = c.ChunkID
	}

	chunks, err := s.vectorStore.GetChunksByIDs(ctx, tenantID, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrating chunks: %w", err)
	}
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ID] = chunk
	}

	graphScores, err := s.graph.ChunkGraphScores(ctx, tenantID, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("computing graph scores: %w", err)
	}

	enriched := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		chunk, ok := byID[c.ChunkID]
		if !ok {
			// Stale index entry for a deleted chunk.
			logger.Debug("Dropping candidate %s without a chunk row", c.ChunkID)
			continue
		}
		c.CreatedAt = chunk.CreatedAt
		c.GraphScore = graphScores[c.ChunkID]
		c.FeedbackScore = chunk.FeedbackScore
		if emb, err := s.docStore.GetEmbedding(ctx, tenantID, c.ChunkID); err == nil {
			c.Embedding = emb.Vector
		}
		enriched = append(enriched, c)
	}

	results := s.reranker.Rerank(enriched, k, weights)
	for i := range results {
		results[i].Chunk = byID[results[i].Chunk.ID]
	}

	logger.Debug("Returning %d of %d candidates", len(results), len(enriched))
	return results, nil
}

// RecordFeedback accumulates an engagement delta on a chunk, feeding
// the reranker's feedback signal on future queries.
func (s *QueryService) RecordFeedback(ctx context.Context, tenantID, chunkID string, delta float64) error {
	if err := s.docStore.AddChunkFeedback(ctx, tenantID, chunkID, delta); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}
	logger.Debug("Feedback %+.2f on chunk %s", delta, chunkID)
	return nil
}

// Status reports per-modality index sizes for capacity planning.
func (s *QueryService) Status(ctx context.Context, tenantID string) ([]domain.IndexStatus, error) {
	statuses, err := s.docStore.IndexStatuses(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("reading index statuses: %w", err)
	}
	return statuses, nil
}
