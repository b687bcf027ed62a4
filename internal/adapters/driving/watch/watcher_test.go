package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

type recordingIngester struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingIngester) IngestDocument(_ context.Context, _, path, _ string, _ map[string]any) (*domain.IngestReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return &domain.IngestReport{DocumentID: "doc"}, nil
}

func (r *recordingIngester) IngestRawText(context.Context, string, string, string, map[string]any) (*domain.IngestReport, error) {
	return nil, nil
}

func (r *recordingIngester) IngestImage(context.Context, string, string, string, map[string]any) (*domain.IngestReport, error) {
	return nil, nil
}

func (r *recordingIngester) DeleteDocument(context.Context, string, string) error { return nil }

func (r *recordingIngester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_IngestsCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	ingester := &recordingIngester{}
	watcher := NewWatcher(ingester, "t1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx, dir)
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("content"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte{1, 2}, 0600))

	require.Eventually(t, func() bool {
		return len(ingester.seen()) == 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Equal(t, []string{notes}, ingester.seen())

	cancel()
	<-done
}

func TestWatcher_MissingDirectory(t *testing.T) {
	watcher := NewWatcher(&recordingIngester{}, "t1")
	err := watcher.Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestWatcher_Wants(t *testing.T) {
	w := NewWatcher(nil, "t1")
	assert.True(t, w.wants("/x/a.txt"))
	assert.True(t, w.wants("/x/A.MD"))
	assert.False(t, w.wants("/x/a.png"))
	assert.False(t, w.wants("/x/noext"))
}
