// Package services implements the driving port interfaces.
// Services contain the core business logic (ingestion pipeline,
// vector store, hybrid reranker, query flow, entity graph) and
// orchestrate calls to driven ports (adapters).
package services
