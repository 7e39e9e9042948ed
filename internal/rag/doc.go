// Package rag retrieves mental health resources by embedding similarity.
//
// This package provides:
//   - An immutable, category-indexed knowledge Store
//   - Cosine similarity ranking over a linear scan of document vectors
//   - An embedding Index published as an atomic snapshot, with Rebuild/Invalidate
//   - A Retriever that embeds queries and ranks candidates, optionally filtered by risk level
//   - Embedders backed by Ollama or by local feature hashing
//   - TOML knowledge files with fsnotify-driven hot reload
//
// Embedding failures are always surfaced; a zero vector is never substituted.
package rag
