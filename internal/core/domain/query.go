package domain

import "time"

// RerankWeights configures the hybrid reranker's linear combination.
// A zero value means "use defaults".
type RerankWeights struct {
	// Vector weighs the k-NN similarity score.
	Vector float64

	// Diversity weighs the penalty for similarity to higher-ranked results.
	Diversity float64

	// Recency weighs the age-decay signal.
	Recency float64

	// Graph weighs the knowledge-graph centrality signal.
	Graph float64

	// Feedback weighs the accumulated engagement signal.
	Feedback float64
}

// DefaultRerankWeights returns the default weight vector.
func DefaultRerankWeights() RerankWeights {
	return RerankWeights{
		Vector:    0.55,
		Diversity: 0.15,
		Recency:   0.10,
		Graph:     0.10,
		Feedback:  0.10,
	}
}

// IsZero reports whether no weight has been set.
func (w RerankWeights) IsZero() bool {
	return w == RerankWeights{}
}

// Candidate is one retrieval candidate entering the hybrid reranker.
type Candidate struct {
	// ChunkID identifies the candidate chunk.
	ChunkID string

	// VectorScore is the k-NN cosine similarity.
	VectorScore float64

	// CreatedAt is the chunk creation time, used for the recency signal.
	CreatedAt time.Time

	// GraphScore is the knowledge-graph centrality proxy.
	GraphScore float64

	// FeedbackScore is the accumulated engagement signal.
	FeedbackScore float64

	// Embedding is the candidate's vector, used for the diversity penalty.
	Embedding []float32
}

// ScoreBreakdown exposes the per-signal contributions behind a final score.
type ScoreBreakdown struct {
	// Vector is the normalised similarity contribution.
	Vector float64 `json:"vector"`

	// Diversity is the (negative) duplicate penalty contribution.
	Diversity float64 `json:"diversity"`

	// Recency is the age-decay contribution.
	Recency float64 `json:"recency"`

	// Graph is the centrality contribution.
	Graph float64 `json:"graph"`

	// Feedback is the engagement contribution.
	Feedback float64 `json:"feedback"`
}

// RankedResult is one entry of a reranked result list.
type RankedResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the final combined score.
	Score float64

	// Breakdown carries the raw per-signal components for explainability.
	Breakdown ScoreBreakdown
}

// IndexStatus describes one (tenant, modality) ANN index for capacity
// planning.
type IndexStatus struct {
	// TenantID is the owning tenant.
	TenantID string

	// Modality is text or image.
	Modality Modality

	// Dimension is the vector length.
	Dimension int

	// Size is the number of stored embeddings.
	Size int64

	// UpdatedAt is when the counter was last touched.
	UpdatedAt time.Time
}
