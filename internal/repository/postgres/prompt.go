package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

// PromptRepository reads prompt overrides
type PromptRepository struct {
	db *sqlx.DB
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *sqlx.DB) repository.PromptRepository {
	return &PromptRepository{db: db}
}

// List returns every stored prompt override
func (r *PromptRepository) List(ctx context.Context) ([]*models.Prompt, error) {
	var prompts []*models.Prompt
	query := `SELECT id, title, name, description, value, created_at FROM prompts ORDER BY name`

	if err := r.db.SelectContext(ctx, &prompts, query); err != nil {
		return nil, err
	}
	return prompts, nil
}
