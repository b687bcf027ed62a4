package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/eaas-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/index/hnsw"
	"github.com/eaas-labs/recall-cli/internal/ner"
)

// bagEncoder is a deterministic test encoder: a hashed bag-of-words
// vector, L2-normalised. Texts sharing words land close in cosine
// space, which is enough to drive retrieval assertions.
type bagEncoder struct {
	dim   int
	calls int
	fail  bool
}

func (e *bagEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.fail {
		return nil, context.DeadlineExceeded
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.encode(text)
	}
	return out, nil
}

func (e *bagEncoder) encode(text string) []float32 {
	v := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'")
		if word == "" {
			continue
		}
		var h uint32
		for _, r := range word {
			h = h*31 + uint32(r)
		}
		v[h%uint32(e.dim)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}

func (e *bagEncoder) Dimension() int    { return e.dim }
func (e *bagEncoder) ModelName() string { return "bag-of-words" }

var _ driven.TextEncoder = (*bagEncoder)(nil)

// fixture bundles a fully wired service stack over in-memory stores
// and a real on-disk index registry.
type fixture struct {
	docs     *memory.DocumentStore
	graphDB  *memory.GraphStore
	encoder  *bagEncoder
	vectors  *VectorStore
	graph    *GraphService
	ingester *IngestionService
	querier  *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	docs := memory.NewDocumentStore()
	graphDB := memory.NewGraphStore()
	docs.LinkGraph(graphDB)
	encoder := &bagEncoder{dim: 16}
	registry := hnsw.NewRegistry(t.TempDir(), hnsw.Config{})
	vectors := NewVectorStore(docs, registry)
	graph := NewGraphService(graphDB)

	f := &fixture{
		docs:    docs,
		graphDB: graphDB,
		encoder: encoder,
		vectors: vectors,
		graph:   graph,
		querier: NewQueryService(docs, vectors, graph, NewReranker(), encoder),
	}
	f.ingester = NewIngestionService(IngestionConfig{
		DocStore:    docs,
		VectorStore: vectors,
		Graph:       graph,
		TextEncoder: encoder,
		Extractor:   ner.New(),
	})
	return f
}
