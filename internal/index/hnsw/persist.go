package hnsw

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// Meta is the JSON sidecar persisted next to each index file. It records
// enough to reason about capacity without deserialising the graph.
type Meta struct {
	TenantID  string          `json:"tenant_id"`
	Modality  domain.Modality `json:"modality"`
	Space     string          `json:"space"`
	Dimension int             `json:"dimension"`
	Size      int             `json:"size"`
	SavedAt   time.Time       `json:"saved_at"`
}

// persistedGraph is the gob-encoded on-disk form of an index.
type persistedGraph struct {
	Dimension int
	M         int
	Entry     int
	MaxLevel  int
	IDs       []uint64
	Vectors   [][]float32
	Neighbors [][][]uint32
}

// load reads a previously persisted index from disk, or initialises an
// empty structure when no file exists. Idempotent: loading an already
// ready index is a no-op.
func (idx *Index) load(meta Meta) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.ready {
		return nil
	}
	idx.meta = meta

	f, err := os.Open(idx.path)
	if errors.Is(err, fs.ErrNotExist) {
		idx.ready = true
		idx.lastSaved = time.Now()
		logger.Debug("Created new index %s (dim=%d)", idx.path, idx.dimension)
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var g persistedGraph
	if err := gob.NewDecoder(f).Decode(&g); err != nil {
		return fmt.Errorf("decoding index file: %w", err)
	}
	if g.Dimension != idx.dimension {
		return fmt.Errorf("%w: index file has %d, want %d",
			domain.ErrDimensionMismatch, g.Dimension, idx.dimension)
	}

	idx.points = make([]point, len(g.IDs))
	for i := range g.IDs {
		idx.points[i] = point{
			id:        g.IDs[i],
			vector:    g.Vectors[i],
			neighbors: g.Neighbors[i],
		}
	}
	idx.entry = g.Entry
	idx.maxLevel = g.MaxLevel
	idx.ready = true
	idx.lastSaved = time.Now()

	logger.Debug("Loaded index %s (%d points)", idx.path, len(idx.points))
	return nil
}

// Flush persists the index immediately if dirty. Used by the periodic
// save-if-stale path and by shutdown handlers.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.ready || !idx.dirty {
		return nil
	}

	g := persistedGraph{
		Dimension: idx.dimension,
		M:         idx.cfg.M,
		Entry:     idx.entry,
		MaxLevel:  idx.maxLevel,
		IDs:       make([]uint64, len(idx.points)),
		Vectors:   make([][]float32, len(idx.points)),
		Neighbors: make([][][]uint32, len(idx.points)),
	}
	for i, p := range idx.points {
		g.IDs[i] = p.id
		g.Vectors[i] = p.vector
		g.Neighbors[i] = p.neighbors
	}

	// Write-then-rename keeps the previous checkpoint intact on crash.
	tmp := idx.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(&g); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}

	meta := idx.meta
	meta.Size = len(idx.points)
	meta.SavedAt = time.Now().UTC()
	if err := writeMeta(idx.path+".meta.json", meta); err != nil {
		return err
	}

	idx.dirty = false
	idx.lastSaved = time.Now()
	logger.Debug("Flushed index %s (%d points)", idx.path, len(idx.points))
	return nil
}

func writeMeta(path string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling index metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}
	return nil
}
