// Package domain contains the core business entities for the retrieval
// engine: documents, chunks, embeddings, entities and ranked results.
// All entities are scoped to a tenant; cross-tenant visibility is never
// permitted.
package domain
