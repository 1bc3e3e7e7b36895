package retrieval

import (
	"context"
	"fmt"

	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/repository"
)

// CandidateResolver picks the reference documents whose descriptions are
// closest to a query
type CandidateResolver struct {
	embedder llm.Embedder
	docs     repository.ReferenceDocumentRepository
	limit    int
}

// NewCandidateResolver creates a resolver returning at most limit ids.
// A non-positive limit means 10.
func NewCandidateResolver(embedder llm.Embedder, docs repository.ReferenceDocumentRepository, limit int) *CandidateResolver {
	if limit <= 0 {
		limit = 10
	}
	return &CandidateResolver{embedder: embedder, docs: docs, limit: limit}
}

// Resolve returns candidate document ids, nearest first
func (c *CandidateResolver) Resolve(ctx context.Context, query string) ([]int64, error) {
	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	ids, err := c.docs.NearestByDescription(ctx, embedding, c.limit)
	if err != nil {
		return nil, err
	}
	return ids, nil
}
