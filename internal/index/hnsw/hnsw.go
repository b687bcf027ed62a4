// Package hnsw implements an incremental approximate nearest-neighbour
// index over cosine space, with durable checkpointing. One Index serves a
// single (tenant, modality, dimension, space) tuple; instances are cached
// and flushed by the Registry.
package hnsw

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default graph-construction parameters.
const (
	// DefaultM is the number of bidirectional links per point.
	DefaultM = 16
	// DefaultEfConstruction is the construction search breadth.
	DefaultEfConstruction = 200
	// DefaultEfSearch is the query search breadth.
	DefaultEfSearch = 64
	// DefaultInitialCapacity pre-sizes the point slice.
	DefaultInitialCapacity = 1024
	// DefaultSaveInterval limits dirty flushes to once per interval.
	DefaultSaveInterval = 2 * time.Minute
)

// Config holds graph-construction parameters.
type Config struct {
	// M is the neighbour count per point per level.
	M int

	// EfConstruction is the candidate-list breadth while inserting.
	EfConstruction int

	// EfSearch is the candidate-list breadth while querying.
	EfSearch int

	// InitialCapacity pre-sizes internal slices.
	InitialCapacity int

	// SaveInterval is the minimum time between dirty flushes.
	SaveInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.M <= 0 {
		c.M = DefaultM
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = DefaultEfConstruction
	}
	if c.EfSearch <= 0 {
		c.EfSearch = DefaultEfSearch
	}
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = DefaultInitialCapacity
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = DefaultSaveInterval
	}
}

// point is one stored vector with its per-level adjacency lists.
type point struct {
	id        uint64
	vector    []float32
	neighbors [][]uint32 // neighbors[level] = internal indexes
}

// Index is an in-memory HNSW graph over cosine space. Vectors are expected
// to be L2-normalised; distance is 1 - dot(a, b).
type Index struct {
	mu sync.RWMutex

	cfg       Config
	path      string
	dimension int
	meta      Meta

	points   []point
	entry    int // internal index of the entry point, -1 when empty
	maxLevel int
	levelMul float64
	rng      *rand.Rand

	ready     bool
	dirty     bool
	lastSaved time.Time
}

// newIndex builds an empty, not-yet-ready index.
func newIndex(path string, dimension int, cfg Config) *Index {
	cfg.applyDefaults()
	return &Index{
		cfg:       cfg,
		path:      path,
		dimension: dimension,
		points:    make([]point, 0, cfg.InitialCapacity),
		entry:     -1,
		maxLevel:  -1,
		levelMul:  1 / math.Log(float64(cfg.M)),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Dimension returns the vector length the index was created with.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored points.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.points)
}

// Add appends points to the live structure and marks the index dirty.
// A dirty index is flushed at most once per the configured save interval.
func (idx *Index) Add(_ context.Context, vectors [][]float32, ids []uint64) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors, %d ids", domain.ErrInvalidInput, len(vectors), len(ids))
	}

	idx.mu.Lock()
	if !idx.ready {
		idx.mu.Unlock()
		return domain.ErrIndexNotInitialised
	}
	for i, vec := range vectors {
		if len(vec) != idx.dimension {
			idx.mu.Unlock()
			return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), idx.dimension)
		}
		idx.insert(vec, ids[i])
	}
	idx.dirty = true
	stale := time.Since(idx.lastSaved) >= idx.cfg.SaveInterval
	idx.mu.Unlock()

	if stale {
		return idx.Flush()
	}
	return nil
}

// Search finds the k nearest neighbours to the query vector.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.ready {
		return nil, domain.ErrIndexNotInitialised
	}
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(query), idx.dimension)
	}
	if k <= 0 || len(idx.points) == 0 {
		return nil, nil
	}

	curr := idx.entry
	for level := idx.maxLevel; level > 0; level-- {
		curr = idx.greedyClosest(query, curr, level)
	}

	ef := idx.cfg.EfSearch
	if ef < k {
		ef = k
	}
	candidates := idx.searchLayer(query, curr, ef, 0)

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]driven.VectorHit, len(candidates))
	for i, c := range candidates {
		hits[i] = driven.VectorHit{
			NumericID:  idx.points[c.index].id,
			Similarity: 1 - float64(c.distance),
		}
	}
	return hits, nil
}

// insert adds one vector. Caller holds the write lock.
func (idx *Index) insert(vector []float32, id uint64) {
	vec := make([]float32, len(vector))
	copy(vec, vector)

	level := idx.randomLevel()
	p := point{
		id:        id,
		vector:    vec,
		neighbors: make([][]uint32, level+1),
	}
	internal := len(idx.points)
	idx.points = append(idx.points, p)

	if idx.entry < 0 {
		idx.entry = internal
		idx.maxLevel = level
		return
	}

	curr := idx.entry
	for l := idx.maxLevel; l > level; l-- {
		curr = idx.greedyClosest(vec, curr, l)
	}

	top := level
	if top > idx.maxLevel {
		top = idx.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := idx.searchLayer(vec, curr, idx.cfg.EfConstruction, l)
		m := idx.maxNeighbors(l)
		if len(candidates) > m {
			candidates = candidates[:m]
		}
		for _, c := range candidates {
			idx.points[internal].neighbors[l] = append(idx.points[internal].neighbors[l], uint32(c.index))
			idx.link(c.index, internal, l)
		}
		if len(candidates) > 0 {
			curr = candidates[0].index
		}
	}

	if level > idx.maxLevel {
		idx.maxLevel = level
		idx.entry = internal
	}
}

// link adds target to source's neighbour list at level, pruning to the
// level's maximum by distance.
func (idx *Index) link(source, target, level int) {
	neighbors := append(idx.points[source].neighbors[level], uint32(target))
	m := idx.maxNeighbors(level)
	if len(neighbors) > m {
		src := idx.points[source].vector
		// Keep the m closest neighbours.
		type cand struct {
			index    uint32
			distance float32
		}
		cands := make([]cand, len(neighbors))
		for i, n := range neighbors {
			cands[i] = cand{n, idx.distance(src, idx.points[n].vector)}
		}
		for i := 1; i < len(cands); i++ {
			for j := i; j > 0 && cands[j].distance < cands[j-1].distance; j-- {
				cands[j], cands[j-1] = cands[j-1], cands[j]
			}
		}
		neighbors = neighbors[:0]
		for _, c := range cands[:m] {
			neighbors = append(neighbors, c.index)
		}
	}
	idx.points[source].neighbors[level] = neighbors
}

// maxNeighbors returns the neighbour cap for a level (2M at level 0).
func (idx *Index) maxNeighbors(level int) int {
	if level == 0 {
		return idx.cfg.M * 2
	}
	return idx.cfg.M
}

// randomLevel draws an exponentially distributed level.
func (idx *Index) randomLevel() int {
	return int(math.Floor(-math.Log(idx.rng.Float64()+1e-12) * idx.levelMul))
}

// greedyClosest walks level edges greedily towards query from start.
func (idx *Index) greedyClosest(query []float32, start, level int) int {
	curr := start
	currDist := idx.distance(query, idx.points[curr].vector)
	for {
		improved := false
		if level < len(idx.points[curr].neighbors) {
			for _, n := range idx.points[curr].neighbors[level] {
				d := idx.distance(query, idx.points[n].vector)
				if d < currDist {
					curr, currDist = int(n), d
					improved = true
				}
			}
		}
		if !improved {
			return curr
		}
	}
}

// scored pairs an internal index with its distance to the query.
type scored struct {
	index    int
	distance float32
}

// minHeap orders by ascending distance.
type minHeap []scored

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].distance < h[j].distance }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(scored)) }

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxHeap orders by descending distance.
type maxHeap []scored

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].distance > h[j].distance }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(scored)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// searchLayer runs a best-first search with breadth ef on one level,
// returning up to ef results sorted by ascending distance.
func (idx *Index) searchLayer(query []float32, entry, ef, level int) []scored {
	visited := map[int]struct{}{entry: {}}

	start := scored{entry, idx.distance(query, idx.points[entry].vector)}
	candidates := minHeap{start}
	results := maxHeap{start}

	for candidates.Len() > 0 {
		c := heap.Pop(&candidates).(scored)
		if c.distance > results[0].distance && results.Len() >= ef {
			break
		}
		if level < len(idx.points[c.index].neighbors) {
			for _, n := range idx.points[c.index].neighbors[level] {
				if _, ok := visited[int(n)]; ok {
					continue
				}
				visited[int(n)] = struct{}{}
				d := idx.distance(query, idx.points[n].vector)
				if results.Len() < ef || d < results[0].distance {
					heap.Push(&candidates, scored{int(n), d})
					heap.Push(&results, scored{int(n), d})
					if results.Len() > ef {
						heap.Pop(&results)
					}
				}
			}
		}
	}

	out := make([]scored, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(scored)
	}
	return out
}

// distance is the cosine distance assuming normalised vectors.
func (idx *Index) distance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}
