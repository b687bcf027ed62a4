package hnsw

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.IndexProvider = (*Registry)(nil)

// Space is the similarity space of every index in this package.
const Space = "cosine"

// Registry caches one long-lived Index per (tenant, modality, dimension,
// space) for the life of the process and owns their flush-on-exit
// behaviour. Exactly one signal handler covers the whole, growing set of
// indexes; per-index handlers would leak under index churn.
type Registry struct {
	mu      sync.Mutex
	dataDir string
	cfg     Config
	indexes map[string]*Index
	sigOnce sync.Once
}

// NewRegistry creates a registry rooted at dataDir.
func NewRegistry(dataDir string, cfg Config) *Registry {
	cfg.applyDefaults()
	return &Registry{
		dataDir: dataDir,
		cfg:     cfg,
		indexes: make(map[string]*Index),
	}
}

// LoadOrCreate returns the cached index for the tuple, loading it from
// disk or creating it on first use. Safe to call repeatedly.
func (r *Registry) LoadOrCreate(_ context.Context, tenantID string, modality domain.Modality, dimension int) (driven.VectorIndex, error) {
	if tenantID == "" || !modality.Valid() || dimension <= 0 {
		return nil, fmt.Errorf("%w: tenant=%q modality=%q dim=%d",
			domain.ErrInvalidInput, tenantID, modality, dimension)
	}

	key := fmt.Sprintf("%s|%s|%s|%d", tenantID, modality, Space, dimension)

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indexes[key]; ok {
		return idx, nil
	}

	dir := filepath.Join(r.dataDir, "index")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s_%d.idx", sanitize(tenantID), modality, Space, dimension)
	idx := newIndex(filepath.Join(dir, name), dimension, r.cfg)
	meta := Meta{
		TenantID:  tenantID,
		Modality:  modality,
		Space:     Space,
		Dimension: dimension,
	}
	if err := idx.load(meta); err != nil {
		return nil, err
	}

	r.indexes[key] = idx
	r.registerShutdownHandler()
	return idx, nil
}

// FlushAll persists every dirty index. Used on shutdown.
func (r *Registry) FlushAll() error {
	r.mu.Lock()
	indexes := make([]*Index, 0, len(r.indexes))
	for _, idx := range r.indexes {
		indexes = append(indexes, idx)
	}
	r.mu.Unlock()

	var firstErr error
	for _, idx := range indexes {
		if err := idx.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// registerShutdownHandler installs the single process-wide signal handler
// that flushes every cached index before exit. Caller holds r.mu.
func (r *Registry) registerShutdownHandler() {
	r.sigOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-ch
			logger.Warn("Received %s, flushing vector indexes", sig)
			if err := r.FlushAll(); err != nil {
				logger.Error("Flush on shutdown failed: %v", err)
			}
			signal.Stop(ch)
			os.Exit(1)
		}()
	})
}

// sanitize makes a tenant id safe for use in a file name.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
