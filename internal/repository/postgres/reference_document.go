package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
	"github.com/pgvector/pgvector-go"
)

const referenceDocumentColumns = `id, name, file_name, status, language, description, created_at, updated_at`

// ReferenceDocumentRepository implements repository.ReferenceDocumentRepository using PostgreSQL
type ReferenceDocumentRepository struct {
	db *sqlx.DB
}

// NewReferenceDocumentRepository creates a new PostgreSQL reference document repository
func NewReferenceDocumentRepository(db *sqlx.DB) repository.ReferenceDocumentRepository {
	return &ReferenceDocumentRepository{db: db}
}

// Get retrieves a reference document by ID
func (r *ReferenceDocumentRepository) Get(ctx context.Context, id int64) (*models.ReferenceDocument, error) {
	var doc models.ReferenceDocument
	query := `SELECT ` + referenceDocumentColumns + ` FROM reference_documents WHERE id = $1`

	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, translateError(err)
	}
	return &doc, nil
}

// List retrieves reference documents ordered by newest first
func (r *ReferenceDocumentRepository) List(ctx context.Context, limit, offset int) ([]*models.ReferenceDocument, error) {
	var docs []*models.ReferenceDocument
	query := `
		SELECT ` + referenceDocumentColumns + `
		FROM reference_documents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	if err := r.db.SelectContext(ctx, &docs, query, limit, offset); err != nil {
		return nil, err
	}
	return docs, nil
}

// NearestByDescription ranks documents by cosine distance of their description embedding
func (r *ReferenceDocumentRepository) NearestByDescription(ctx context.Context, embedding []float32, limit int) ([]int64, error) {
	var ids []int64
	query := `
		SELECT id
		FROM reference_documents
		WHERE description_embedding IS NOT NULL
		ORDER BY description_embedding <=> $1
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &ids, query, pgvector.NewVector(embedding), limit); err != nil {
		return nil, fmt.Errorf("failed to rank reference documents: %w", err)
	}
	return ids, nil
}

// Delete purges the document's chunks and then the document
func (r *ReferenceDocumentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE reference_document_id = $1`, id); err != nil {
		return fmt.Errorf("failed to purge chunks: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM reference_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reference document: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repository.ErrNotFound
	}

	return tx.Commit()
}
