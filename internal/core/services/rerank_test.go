package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

func TestRerank_Empty(t *testing.T) {
	r := NewReranker()
	assert.Nil(t, r.Rerank(nil, 5, domain.RerankWeights{}))
	assert.Nil(t, r.Rerank([]domain.Candidate{{ChunkID: "a"}}, 0, domain.RerankWeights{}))
}

func TestRerank_OrdersByVectorScore(t *testing.T) {
	r := NewReranker()
	now := time.Now()

	results := r.Rerank([]domain.Candidate{
		{ChunkID: "low", VectorScore: 0.2, CreatedAt: now},
		{ChunkID: "high", VectorScore: 0.9, CreatedAt: now},
		{ChunkID: "mid", VectorScore: 0.5, CreatedAt: now},
	}, 3, domain.RerankWeights{})

	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.Equal(t, "low", results[2].Chunk.ID)
}

func TestRerank_FewerCandidatesThanK(t *testing.T) {
	r := NewReranker()

	results := r.Rerank([]domain.Candidate{
		{ChunkID: "only", VectorScore: 1},
	}, 10, domain.RerankWeights{})

	require.Len(t, results, 1)
	assert.Equal(t, "only", results[0].Chunk.ID)
}

func TestRerank_DiversityDemotesNearDuplicate(t *testing.T) {
	r := NewReranker()
	now := time.Now()

	// "dup" is a near-copy of "best"; "other" is orthogonal. With the
	// diversity penalty the orthogonal candidate outranks the duplicate
	// despite its lower raw similarity.
	results := r.Rerank([]domain.Candidate{
		{ChunkID: "best", VectorScore: 0.95, CreatedAt: now, Embedding: []float32{1, 0}},
		{ChunkID: "dup", VectorScore: 0.94, CreatedAt: now, Embedding: []float32{1, 0}},
		{ChunkID: "other", VectorScore: 0.80, CreatedAt: now, Embedding: []float32{0, 1}},
	}, 3, domain.RerankWeights{Vector: 0.5, Diversity: 0.5})

	require.Len(t, results, 3)
	assert.Equal(t, "best", results[0].Chunk.ID)
	assert.Equal(t, "other", results[1].Chunk.ID)
	assert.Equal(t, "dup", results[2].Chunk.ID)

	// The duplicate carries a negative diversity component.
	assert.Negative(t, results[2].Breakdown.Diversity)
	assert.Zero(t, results[0].Breakdown.Diversity)
}

func TestRerank_RecencyDecay(t *testing.T) {
	r := NewReranker()
	now := time.Now()

	results := r.Rerank([]domain.Candidate{
		{ChunkID: "old", VectorScore: 0.5, CreatedAt: now.Add(-90 * 24 * time.Hour)},
		{ChunkID: "fresh", VectorScore: 0.5, CreatedAt: now},
	}, 2, domain.RerankWeights{Vector: 0.5, Recency: 0.5})

	require.Len(t, results, 2)
	assert.Equal(t, "fresh", results[0].Chunk.ID)
	assert.Greater(t, results[0].Breakdown.Recency, results[1].Breakdown.Recency)

	// 90 days at a 30-day half-life leaves one eighth.
	assert.InDelta(t, 0.5/8, results[1].Breakdown.Recency, 1e-3)
}

func TestRerank_GraphAndFeedbackMaxNormalised(t *testing.T) {
	r := NewReranker()
	now := time.Now()

	results := r.Rerank([]domain.Candidate{
		{ChunkID: "a", VectorScore: 0.5, CreatedAt: now, GraphScore: 10, FeedbackScore: 4},
		{ChunkID: "b", VectorScore: 0.5, CreatedAt: now, GraphScore: 5, FeedbackScore: 2},
	}, 2, domain.RerankWeights{Vector: 0.4, Graph: 0.3, Feedback: 0.3})

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.InDelta(t, 0.3, results[0].Breakdown.Graph, 1e-9)
	assert.InDelta(t, 0.15, results[1].Breakdown.Graph, 1e-9)
	assert.InDelta(t, 0.3, results[0].Breakdown.Feedback, 1e-9)
}

func TestRerank_BreakdownSumsToScore(t *testing.T) {
	r := NewReranker()

	results := r.Rerank([]domain.Candidate{
		{ChunkID: "a", VectorScore: 0.7, CreatedAt: time.Now(), GraphScore: 3, FeedbackScore: 1, Embedding: []float32{1, 0}},
		{ChunkID: "b", VectorScore: 0.6, CreatedAt: time.Now(), GraphScore: 1, Embedding: []float32{0.9, 0.1}},
	}, 2, domain.RerankWeights{})

	for _, res := range results {
		b := res.Breakdown
		assert.InDelta(t, res.Score, b.Vector+b.Diversity+b.Recency+b.Graph+b.Feedback, 1e-9)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 0}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
