package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

const messageColumns = `id, chat_id, uuid, role, text, language, parent_id, used_query,
	show_translation_disclaimer, translation_disclaimer_language, created_at`

// MessageRepository implements repository.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.UUID == uuid.Nil {
		message.UUID = uuid.New()
	}

	query := `
		INSERT INTO messages (chat_id, uuid, role, text, language, parent_id, used_query,
			show_translation_disclaimer, translation_disclaimer_language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		message.ConversationID,
		message.UUID,
		message.Role,
		message.Text,
		message.Language,
		message.ParentID,
		message.UsedQuery,
		message.ShowTranslationDisclaimer,
		message.TranslationDisclaimerLanguage,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", translateError(err))
	}

	return nil
}

// Get retrieves a message by ID
func (r *MessageRepository) Get(ctx context.Context, id int64) (*models.Message, error) {
	var message models.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

// GetByUUID retrieves a message by its idempotency key
func (r *MessageRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE uuid = $1`

	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

// FirstChild returns the first answer stored for a message
func (r *MessageRepository) FirstChild(ctx context.Context, parentID int64) (*models.Message, error) {
	var message models.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE parent_id = $1 ORDER BY id ASC LIMIT 1`

	if err := r.db.GetContext(ctx, &message, query, parentID); err != nil {
		return nil, translateError(err)
	}
	return &message, nil
}

// ListByConversation retrieves messages for a conversation
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	var messages []*models.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = $1 ORDER BY id ASC`

	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, err
	}
	return messages, nil
}

// Recent returns the latest messages in chronological order
func (r *MessageRepository) Recent(ctx context.Context, conversationID, excludeID int64, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE chat_id = $1 AND id <> $2
			ORDER BY id DESC
			LIMIT $3
		) recent
		ORDER BY id ASC
	`

	if err := r.db.SelectContext(ctx, &messages, query, conversationID, excludeID, limit); err != nil {
		return nil, err
	}
	return messages, nil
}

// After returns messages newer than afterID
func (r *MessageRepository) After(ctx context.Context, conversationID, afterID, excludeID int64) ([]*models.Message, error) {
	var messages []*models.Message
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND id > $2 AND id <> $3
		ORDER BY id ASC
	`

	if err := r.db.SelectContext(ctx, &messages, query, conversationID, afterID, excludeID); err != nil {
		return nil, err
	}
	return messages, nil
}

// SetUsedQuery stores the rewritten query of a user message
func (r *MessageRepository) SetUsedQuery(ctx context.Context, id int64, query string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE messages SET used_query = $1 WHERE id = $2`, query, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
