package vectorstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/nizami/nizami-backend/internal/models"
)

// PGVectorStore searches document_chunks with the pgvector cosine operator
type PGVectorStore struct {
	db       *sqlx.DB
	efSearch int
}

// NewPGVectorStore creates a store. efSearch > 0 raises hnsw.ef_search for
// filtered queries so the index scan keeps enough candidates after filtering.
func NewPGVectorStore(db *sqlx.DB, efSearch int) *PGVectorStore {
	return &PGVectorStore{db: db, efSearch: efSearch}
}

type chunkRow struct {
	ID         string       `db:"id"`
	DocumentID int64        `db:"reference_document_id"`
	Language   string       `db:"language"`
	Document   string       `db:"document"`
	Metadata   models.JSONB `db:"cmetadata"`
	Distance   float64      `db:"distance"`
}

func (r chunkRow) chunk() models.Chunk {
	return models.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Language:   r.Language,
		Text:       r.Document,
		Similarity: 1 - r.Distance,
		Metadata:   r.Metadata,
	}
}

const chunkSelect = `
	SELECT id::text AS id, reference_document_id, language, document, cmetadata,
	       embedding <=> $1 AS distance
	FROM document_chunks
`

// SearchFiltered ranks only the chunks of documentIDs
func (s *PGVectorStore) SearchFiltered(ctx context.Context, embedding []float32, documentIDs []int64, k int) ([]models.Chunk, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if s.efSearch > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", s.efSearch)); err != nil {
			return nil, fmt.Errorf("failed to set ef_search: %w", err)
		}
	}

	var rows []chunkRow
	query := chunkSelect + `
		WHERE reference_document_id = ANY($2)
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	if err := tx.SelectContext(ctx, &rows, query, pgvector.NewVector(embedding), pq.Array(documentIDs), k); err != nil {
		return nil, fmt.Errorf("filtered chunk search failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return toChunks(rows), nil
}

// SearchGlobal ranks every chunk
func (s *PGVectorStore) SearchGlobal(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	var rows []chunkRow
	query := chunkSelect + `
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	if err := s.db.SelectContext(ctx, &rows, query, pgvector.NewVector(embedding), k); err != nil {
		return nil, fmt.Errorf("global chunk search failed: %w", err)
	}
	return toChunks(rows), nil
}

func toChunks(rows []chunkRow) []models.Chunk {
	chunks := make([]models.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = r.chunk()
	}
	return chunks
}
