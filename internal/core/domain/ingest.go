package domain

// ChunkState is the per-chunk outcome of an ingestion run.
type ChunkState string

const (
	// ChunkIngested means the chunk and its embedding were persisted.
	ChunkIngested ChunkState = "ingested"
	// ChunkMetadataOnly means the chunk was persisted without an embedding.
	ChunkMetadataOnly ChunkState = "metadata_only"
	// ChunkFailed means embedding or persistence failed for the chunk.
	ChunkFailed ChunkState = "failed"
)

// ChunkStatus reports the outcome for a single chunk of one ingestion.
type ChunkStatus struct {
	// ChunkID is the chunk the status refers to.
	ChunkID string

	// Position is the chunk's ordinal position.
	Position int

	// State is the outcome.
	State ChunkState

	// Error is the failure message when State is ChunkFailed.
	Error string
}

// IngestReport is the explicit partial-success contract of the ingestion
// pipeline: the document and every successfully processed chunk survive a
// mid-document failure, and the caller learns exactly which chunks failed.
type IngestReport struct {
	// DocumentID is the created document.
	DocumentID string

	// Chunks holds one status per produced chunk, in position order.
	Chunks []ChunkStatus

	// Failed is the number of chunks in ChunkFailed state.
	Failed int
}

// Succeeded reports whether every chunk was ingested without error.
func (r IngestReport) Succeeded() bool {
	return r.Failed == 0
}
