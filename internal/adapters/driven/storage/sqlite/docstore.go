package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eaas-labs/recall-cli/internal/core/domain"
	"github.com/eaas-labs/recall-cli/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, tenant_id, source_uri, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ID, doc.TenantID, doc.SourceURI, string(metadataJSON), doc.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by id within the tenant.
func (s *documentStore) GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, source_uri, metadata, created_at
		FROM documents WHERE id = ? AND tenant_id = ?
	`, id, tenantID)

	var doc domain.Document
	var metadataJSON string
	var createdAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.TenantID, &doc.SourceURI, &metadataJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	return &doc, nil
}

// ListDocuments returns all documents of a tenant.
func (s *documentStore) ListDocuments(ctx context.Context, tenantID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, source_uri, metadata, created_at
		FROM documents WHERE tenant_id = ?
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.Document
		var metadataJSON string
		var createdAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.SourceURI, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
		if createdAt.Valid {
			doc.CreatedAt = createdAt.Time
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; foreign keys cascade to chunks,
// embeddings and chunk-entity rows. The tenant filter in the predicate
// makes a foreign-tenant id a no-op, never an error.
func (s *documentStore) DeleteDocument(ctx context.Context, tenantID, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// SaveChunk stores a chunk.
func (s *documentStore) SaveChunk(ctx context.Context, chunk *domain.Chunk) error {
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO chunks (id, tenant_id, document_id, modality, position,
			content, image_uri, caption, metadata, feedback_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, chunk.ID, chunk.TenantID, chunk.DocumentID, string(chunk.Modality), chunk.Position,
		chunk.Content, chunk.ImageURI, chunk.Caption, string(metadataJSON),
		chunk.FeedbackScore, chunk.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// GetChunksByIDs bulk-fetches chunks, scoped to the requesting tenant.
// Unknown or foreign-tenant ids are silently omitted.
func (s *documentStore) GetChunksByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, document_id, modality, position, content,
			image_uri, caption, metadata, feedback_score, created_at
		FROM chunks WHERE tenant_id = ? AND id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// GetChunksByDocument returns a document's chunks in position order.
func (s *documentStore) GetChunksByDocument(ctx context.Context, tenantID, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, tenant_id, document_id, modality, position, content,
			image_uri, caption, metadata, feedback_score, created_at
		FROM chunks WHERE tenant_id = ? AND document_id = ?
		ORDER BY position
	`, tenantID, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// AddChunkFeedback accumulates an engagement delta on a chunk.
func (s *documentStore) AddChunkFeedback(ctx context.Context, tenantID, chunkID string, delta float64) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE chunks SET feedback_score = feedback_score + ?
		WHERE id = ? AND tenant_id = ?
	`, delta, chunkID, tenantID)
	if err != nil {
		return fmt.Errorf("updating feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating feedback: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetEmbedding retrieves the embedding for a chunk.
func (s *documentStore) GetEmbedding(ctx context.Context, tenantID, chunkID string) (*domain.Embedding, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT chunk_id, tenant_id, modality, model, dimension, numeric_id, vector, updated_at
		FROM embeddings WHERE chunk_id = ? AND tenant_id = ?
	`, chunkID, tenantID)

	var emb domain.Embedding
	var modality string
	var numericID int64
	var blob []byte
	var updatedAt sql.NullTime
	if err := row.Scan(&emb.ChunkID, &emb.TenantID, &modality, &emb.Model,
		&emb.Dimension, &numericID, &blob, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}

	emb.Modality = domain.Modality(modality)
	emb.NumericID = uint64(numericID)
	emb.Vector = bytesToFloat32Slice(blob)
	if updatedAt.Valid {
		emb.UpdatedAt = updatedAt.Time
	}
	return &emb, nil
}

// UpsertEmbedding inserts or replaces the embedding keyed by chunk id.
func (s *documentStore) UpsertEmbedding(ctx context.Context, emb *domain.Embedding) error {
	if emb.UpdatedAt.IsZero() {
		emb.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, tenant_id, modality, model, dimension, numeric_id, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			modality = excluded.modality,
			model = excluded.model,
			dimension = excluded.dimension,
			numeric_id = excluded.numeric_id,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`, emb.ChunkID, emb.TenantID, string(emb.Modality), emb.Model, emb.Dimension,
		int64(emb.NumericID), float32SliceToBytes(emb.Vector), emb.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upserting embedding: %w", err)
	}
	return nil
}

// ResolveNumericIDs maps ANN numeric ids back to chunk ids using the
// tenant's embedding rows. Unresolvable ids are omitted.
func (s *documentStore) ResolveNumericIDs(ctx context.Context, tenantID string, modality domain.Modality, numericIDs []uint64) (map[uint64]string, error) {
	if len(numericIDs) == 0 {
		return map[uint64]string{}, nil
	}

	args := make([]any, 0, len(numericIDs)+2)
	args = append(args, tenantID, string(modality))
	for _, id := range numericIDs {
		args = append(args, int64(id))
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT numeric_id, chunk_id
		FROM embeddings
		WHERE tenant_id = ? AND modality = ? AND numeric_id IN (`+placeholders(len(numericIDs))+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolving numeric ids: %w", err)
	}
	defer rows.Close()

	resolved := make(map[uint64]string, len(numericIDs))
	for rows.Next() {
		var numericID int64
		var chunkID string
		if err := rows.Scan(&numericID, &chunkID); err != nil {
			return nil, fmt.Errorf("scanning numeric id: %w", err)
		}
		resolved[uint64(numericID)] = chunkID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating numeric ids: %w", err)
	}
	return resolved, nil
}

// BumpIndexSize increments the (tenant, modality) size counter.
func (s *documentStore) BumpIndexSize(ctx context.Context, tenantID string, modality domain.Modality, dimension int) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO vector_meta (tenant_id, modality, dimension, size, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(tenant_id, modality) DO UPDATE SET
			size = size + 1,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`, tenantID, string(modality), dimension, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("bumping index size: %w", err)
	}
	return nil
}

// IndexStatuses returns the per-modality counters for a tenant.
func (s *documentStore) IndexStatuses(ctx context.Context, tenantID string) ([]domain.IndexStatus, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT tenant_id, modality, dimension, size, updated_at
		FROM vector_meta WHERE tenant_id = ?
		ORDER BY modality
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("querying vector meta: %w", err)
	}
	defer rows.Close()

	var statuses []domain.IndexStatus //nolint:prealloc // size unknown from query
	for rows.Next() {
		var st domain.IndexStatus
		var modality string
		var updatedAt sql.NullTime
		if err := rows.Scan(&st.TenantID, &modality, &st.Dimension, &st.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning vector meta: %w", err)
		}
		st.Modality = domain.Modality(modality)
		if updatedAt.Valid {
			st.UpdatedAt = updatedAt.Time
		}
		statuses = append(statuses, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector meta: %w", err)
	}
	return statuses, nil
}

// scanChunks drains a chunk query result.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var modality, metadataJSON string
		var createdAt sql.NullTime
		if err := rows.Scan(&chunk.ID, &chunk.TenantID, &chunk.DocumentID, &modality,
			&chunk.Position, &chunk.Content, &chunk.ImageURI, &chunk.Caption,
			&metadataJSON, &chunk.FeedbackScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Modality = domain.Modality(modality)
		if metadataJSON != jsonNull {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}
		if createdAt.Valid {
			chunk.CreatedAt = createdAt.Time
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}
