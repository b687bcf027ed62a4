// Package watch drives the ingestion pipeline from filesystem events.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eaas-labs/recall-cli/internal/core/ports/driving"
	"github.com/eaas-labs/recall-cli/internal/logger"
)

// settleDelay lets writers finish before a changed file is ingested.
const settleDelay = 500 * time.Millisecond

// defaultExtensions are the file types the watcher ingests.
var defaultExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Watcher ingests files created or modified under a directory.
type Watcher struct {
	ingester   driving.IngestionService
	tenantID   string
	extensions map[string]bool
}

// NewWatcher creates a directory watcher for the tenant.
func NewWatcher(ingester driving.IngestionService, tenantID string) *Watcher {
	return &Watcher{
		ingester:   ingester,
		tenantID:   tenantID,
		extensions: defaultExtensions,
	}
}

// Run watches dir until the context is cancelled. Each created or
// written file with a supported extension is ingested as a document;
// per-file failures are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("Watching %s", dir)

	// pending debounces bursts of write events per file.
	pending := make(map[string]*time.Timer)
	ingest := make(chan string)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.wants(event.Name) {
				continue
			}
			path := event.Name
			if timer, exists := pending[path]; exists {
				timer.Stop()
			}
			pending[path] = time.AfterFunc(settleDelay, func() {
				select {
				case ingest <- path:
				case <-ctx.Done():
				}
			})

		case path := <-ingest:
			delete(pending, path)
			report, err := w.ingester.IngestDocument(ctx, w.tenantID, path, path, nil)
			if err != nil {
				logger.Error("Ingesting %s failed: %v", path, err)
				continue
			}
			if report.Succeeded() {
				logger.Info("Ingested %s (%d chunks)", path, len(report.Chunks))
			} else {
				logger.Warn("Ingested %s with %d failed chunk(s)", path, report.Failed)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) wants(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}
