package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	body, err := NewFetcher(Config{}).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)
}

func TestFetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer server.Close()

	_, err := NewFetcher(Config{MaxBytes: 16}).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, domain.ErrResponseTooLarge)
}

func TestFetch_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(Config{}).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(Config{}).Fetch(ctx, "http://localhost:1")
	assert.Error(t, err)
}
