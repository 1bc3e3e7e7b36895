package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

// StepLogRepository handles step telemetry data access
type StepLogRepository struct {
	db *sqlx.DB
}

// NewStepLogRepository creates a new step log repository
func NewStepLogRepository(db *sqlx.DB) repository.StepLogRepository {
	return &StepLogRepository{db: db}
}

// Create appends a step log entry
func (r *StepLogRepository) Create(ctx context.Context, entry *models.StepLog) error {
	query := `
		INSERT INTO message_step_logs (message_id, step_name, input, output, time_sec, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		entry.MessageID, entry.StepName, nullableJSON(entry.Input), nullableJSON(entry.Output),
		entry.TimeSec, entry.Error,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByMessage lists the steps recorded for a message in execution order
func (r *StepLogRepository) ListByMessage(ctx context.Context, messageID int64) ([]*models.StepLog, error) {
	var entries []*models.StepLog
	query := `
		SELECT id, message_id, step_name, COALESCE(input, 'null'::jsonb) AS input,
			COALESCE(output, 'null'::jsonb) AS output, time_sec, error, created_at
		FROM message_step_logs
		WHERE message_id = $1
		ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &entries, query, messageID); err != nil {
		return nil, err
	}
	return entries, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
