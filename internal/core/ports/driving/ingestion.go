package driving

import (
	"context"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
)

// IngestionService converts external artifacts into persisted documents,
// chunks, embeddings and entity links.
type IngestionService interface {
	// IngestDocument parses and ingests the file at path.
	IngestDocument(ctx context.Context, tenantID, path, sourceURI string, metadata map[string]any) (*domain.IngestReport, error)

	// IngestRawText ingests a raw text string.
	IngestRawText(ctx context.Context, tenantID, text, sourceURI string, metadata map[string]any) (*domain.IngestReport, error)

	// IngestImage ingests a single image by URI.
	IngestImage(ctx context.Context, tenantID, imageURI, sourceURI string, metadata map[string]any) (*domain.IngestReport, error)

	// DeleteDocument cascades deletion to all dependent rows within the
	// tenant. A foreign-tenant document id is a silent no-op.
	DeleteDocument(ctx context.Context, tenantID, documentID string) error
}
