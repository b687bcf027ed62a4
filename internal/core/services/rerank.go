package services

import (
	"math"
	"sort"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// recencyHalfLife controls the age-decay signal: a chunk loses half of
// its recency contribution every 30 days.
const recencyHalfLife = 30 * 24 * time.Hour

// Reranker combines heterogeneous relevance signals into one ranking
// with a per-signal breakdown.
type Reranker struct {
	now func() time.Time
}

// NewReranker creates a reranker.
func NewReranker() *Reranker {
	return &Reranker{now: time.Now}
}

// scored pairs a candidate with its static (selection-independent)
// signal contributions.
type scored struct {
	candidate domain.Candidate
	breakdown domain.ScoreBreakdown
	base      float64
	selected  bool
}

// Rerank orders candidates by a weighted combination of vector
// similarity, recency, graph centrality and feedback, then applies a
// greedy diversity penalty so near-duplicates do not crowd the top.
// Fewer candidates than k returns all of them; empty input is empty
// output.
func (r *Reranker) Rerank(candidates []domain.Candidate, k int, weights domain.RerankWeights) []domain.RankedResult {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if weights.IsZero() {
		weights = domain.DefaultRerankWeights()
	}

	maxGraph, maxFeedback := 0.0, 0.0
	for _, c := range candidates {
		maxGraph = math.Max(maxGraph, c.GraphScore)
		maxFeedback = math.Max(maxFeedback, c.FeedbackScore)
	}

	now := r.now()
	pool := make([]*scored, len(candidates))
	for i, c := range candidates {
		b := domain.ScoreBreakdown{
			Vector:   weights.Vector * c.VectorScore,
			Recency:  weights.Recency * recencyScore(now, c.CreatedAt),
			Graph:    weights.Graph * maxNormalise(c.GraphScore, maxGraph),
			Feedback: weights.Feedback * maxNormalise(c.FeedbackScore, maxFeedback),
		}
		pool[i] = &scored{
			candidate: c,
			breakdown: b,
			base:      b.Vector + b.Recency + b.Graph + b.Feedback,
		}
	}

	if k > len(pool) {
		k = len(pool)
	}

	// Greedy selection: each round picks the best remaining candidate
	// after subtracting the diversity penalty against what is already
	// chosen.
	results := make([]domain.RankedResult, 0, k)
	var chosen []*scored
	for len(results) < k {
		var best *scored
		bestScore := math.Inf(-1)
		var bestPenalty float64
		for _, s := range pool {
			if s.selected {
				continue
			}
			penalty := weights.Diversity * maxSimilarityTo(s.candidate.Embedding, chosen)
			if score := s.base - penalty; score > bestScore {
				best, bestScore, bestPenalty = s, score, penalty
			}
		}
		if best == nil {
			break
		}
		best.selected = true
		best.breakdown.Diversity = -bestPenalty
		chosen = append(chosen, best)
		results = append(results, domain.RankedResult{
			Chunk:     domain.Chunk{ID: best.candidate.ChunkID},
			Score:     bestScore,
			Breakdown: best.breakdown,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// recencyScore decays exponentially with age. Future timestamps clamp
// to 1.
func recencyScore(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-float64(age) / float64(recencyHalfLife))
}

func maxNormalise(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}

// maxSimilarityTo returns the maximum cosine similarity between the
// embedding and any already-selected candidate's embedding.
func maxSimilarityTo(embedding []float32, chosen []*scored) float64 {
	if len(embedding) == 0 {
		return 0
	}
	var best float64
	for _, s := range chosen {
		best = math.Max(best, cosineSimilarity(embedding, s.candidate.Embedding))
	}
	return best
}

// cosineSimilarity assumes L2-normalised inputs, so the dot product is
// the similarity. Mismatched lengths score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
