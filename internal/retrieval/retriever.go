// Package retrieval finds the chunks used as context for a legal answer.
// A query is first mapped to a small candidate set of reference documents,
// then chunks are ranked within that set.
package retrieval

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/models"
)

// ChunkStore is a vector index of document chunks
type ChunkStore interface {
	// SearchFiltered ranks only chunks of documentIDs
	SearchFiltered(ctx context.Context, embedding []float32, documentIDs []int64, k int) ([]models.Chunk, error)
	SearchGlobal(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error)
}

// Config tunes the fallback search
type Config struct {
	// The fallback searches max(k*FallbackMultiplier, FallbackFloor) chunks
	FallbackMultiplier int
	FallbackFloor      int
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{FallbackMultiplier: 20, FallbackFloor: 100}
}

// Retriever ranks chunks within a candidate document set
type Retriever struct {
	embedder llm.Embedder
	store    ChunkStore
	config   Config
	logger   logrus.FieldLogger
}

// NewRetriever creates a retriever
func NewRetriever(embedder llm.Embedder, store ChunkStore, config Config, logger logrus.FieldLogger) *Retriever {
	if config.FallbackMultiplier <= 0 {
		config.FallbackMultiplier = DefaultConfig().FallbackMultiplier
	}
	if config.FallbackFloor <= 0 {
		config.FallbackFloor = DefaultConfig().FallbackFloor
	}
	return &Retriever{embedder: embedder, store: store, config: config, logger: logger}
}

// Retrieve returns up to k chunks of documentIDs ordered by similarity to
// query. No candidates means no chunks; nothing is embedded or searched.
func (r *Retriever) Retrieve(ctx context.Context, query string, documentIDs []int64, k int) ([]models.Chunk, error) {
	if len(documentIDs) == 0 || k <= 0 {
		return nil, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := r.store.SearchFiltered(ctx, embedding, documentIDs, k)
	if err == nil {
		searches.WithLabelValues("filtered", "ok").Inc()
		return chunks, nil
	}
	searches.WithLabelValues("filtered", "error").Inc()
	r.logger.WithError(err).WithField("documents", len(documentIDs)).
		Warn("Filtered chunk search failed, falling back to global search")

	return r.globalThenFilter(ctx, embedding, documentIDs, k)
}

// globalThenFilter may legitimately return fewer than k chunks: the
// candidates' chunks can all rank below the global window.
func (r *Retriever) globalThenFilter(ctx context.Context, embedding []float32, documentIDs []int64, k int) ([]models.Chunk, error) {
	window := k * r.config.FallbackMultiplier
	if window < r.config.FallbackFloor {
		window = r.config.FallbackFloor
	}

	global, err := r.store.SearchGlobal(ctx, embedding, window)
	if err != nil {
		searches.WithLabelValues("global", "error").Inc()
		return nil, fmt.Errorf("global chunk search failed: %w", err)
	}
	searches.WithLabelValues("global", "ok").Inc()

	chunks := FilterByDocuments(global, documentIDs, k)
	r.logger.WithFields(logrus.Fields{
		"window":  window,
		"matched": len(chunks),
	}).Debug("Global search filtered to candidate documents")
	return chunks, nil
}

// FilterByDocuments keeps, in order, the first k chunks belonging to documentIDs
func FilterByDocuments(chunks []models.Chunk, documentIDs []int64, k int) []models.Chunk {
	allowed := make(map[int64]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = struct{}{}
	}

	out := make([]models.Chunk, 0, k)
	for _, c := range chunks {
		if _, ok := allowed[c.DocumentID]; !ok {
			continue
		}
		out = append(out, c)
		if len(out) == k {
			break
		}
	}
	return out
}
