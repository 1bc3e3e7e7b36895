// Package vectorstore implements the chunk stores the retriever searches:
// pgvector tables written by the ingestion job, a Qdrant collection, and an
// in-memory store for tests and local runs.
package vectorstore

import "errors"

// ErrFilterUnsupported is returned by stores that cannot pre-filter by
// document id
var ErrFilterUnsupported = errors.New("vector store does not support document filtering")
