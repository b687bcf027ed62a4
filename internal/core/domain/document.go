package domain

import "time"

// Modality identifies the content type of a chunk and its embedding.
type Modality string

const (
	// ModalityText marks text chunks and text embeddings.
	ModalityText Modality = "text"
	// ModalityImage marks image chunks and image embeddings.
	ModalityImage Modality = "image"
)

// Valid reports whether the modality is a known value.
func (m Modality) Valid() bool {
	return m == ModalityText || m == ModalityImage
}

// Document is a unit of ingested knowledge owned by exactly one tenant.
// Deleting a document cascades to all of its chunks, embeddings and
// chunk-entity associations.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// TenantID is the owning tenant. Mandatory on every operation.
	TenantID string

	// SourceURI is the original location (file path, URL, label).
	SourceURI string

	// Metadata contains format-specific and caller-supplied key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Chunk is the smallest retrievable unit, belonging to exactly one document.
// Its TenantID must always equal the parent document's TenantID.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// TenantID is the owning tenant.
	TenantID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Modality is text or image.
	Modality Modality

	// Position is the ordinal position within the document.
	Position int

	// Content is the text content. Empty for image chunks.
	Content string

	// ImageURI is the image location for image chunks.
	ImageURI string

	// Caption is an optional caption for image chunks.
	Caption string

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any

	// FeedbackScore accumulates engagement signals for reranking.
	FeedbackScore float64

	// CreatedAt is when the chunk was persisted.
	CreatedAt time.Time
}

// Embedding is the persisted vector representation of one chunk in one
// modality. Re-ingestion replaces it in place keyed by chunk id.
type Embedding struct {
	// ChunkID is the owning chunk. One embedding per chunk per modality.
	ChunkID string

	// TenantID is the owning tenant.
	TenantID string

	// Modality is text or image.
	Modality Modality

	// Model is the name of the model that produced the vector.
	Model string

	// Dimension is the vector length.
	Dimension int

	// NumericID is the deterministic hash of ChunkID used by the ANN index.
	NumericID uint64

	// Vector is the L2-normalised embedding.
	Vector []float32

	// UpdatedAt is when the embedding was last upserted.
	UpdatedAt time.Time
}
