package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
)

const conversationColumns = `id, title, user_id, summary, summary_last_message_id, created_at`

// ConversationRepository implements repository.ConversationRepository using PostgreSQL
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	query := `
		INSERT INTO chats (title, user_id, summary, summary_last_message_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		conversation.Title,
		conversation.UserID,
		conversation.Summary,
		conversation.SummaryLastMessageID,
	).Scan(&conversation.ID, &conversation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", translateError(err))
	}
	return nil
}

// Get retrieves a conversation by ID
func (r *ConversationRepository) Get(ctx context.Context, id int64) (*models.Conversation, error) {
	var conversation models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM chats WHERE id = $1`

	if err := r.db.GetContext(ctx, &conversation, query, id); err != nil {
		return nil, translateError(err)
	}
	return &conversation, nil
}

// SaveSummary stores a summary unless a newer one is already present
func (r *ConversationRepository) SaveSummary(ctx context.Context, id int64, summary string, lastMessageID int64) error {
	return saveSummary(ctx, r.db, id, summary, lastMessageID)
}

// LockForSummary runs fn inside a transaction holding SELECT ... FOR UPDATE
// on the conversation row
func (r *ConversationRepository) LockForSummary(ctx context.Context, id int64, fn func(ctx context.Context, locked repository.LockedConversation) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var conversation models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM chats WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &conversation, query, id); err != nil {
		return translateError(err)
	}

	if err := fn(ctx, &lockedConversation{tx: tx, conversation: &conversation}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit summary: %w", err)
	}
	return nil
}

type lockedConversation struct {
	tx           *sqlx.Tx
	conversation *models.Conversation
}

func (l *lockedConversation) Conversation() *models.Conversation {
	return l.conversation
}

func (l *lockedConversation) MessagesInRange(ctx context.Context, afterID, uptoID int64) ([]*models.Message, error) {
	var messages []*models.Message
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND id > $2 AND id <= $3
		ORDER BY id ASC
	`
	if err := l.tx.SelectContext(ctx, &messages, query, l.conversation.ID, afterID, uptoID); err != nil {
		return nil, err
	}
	return messages, nil
}

func (l *lockedConversation) SaveSummary(ctx context.Context, summary string, lastMessageID int64) error {
	if err := saveSummary(ctx, l.tx, l.conversation.ID, summary, lastMessageID); err != nil {
		return err
	}
	l.conversation.Summary = summary
	if lastMessageID > l.conversation.Watermark() {
		l.conversation.SummaryLastMessageID = &lastMessageID
	}
	return nil
}

// saveSummary never lowers summary_last_message_id
func saveSummary(ctx context.Context, exec sqlx.ExecerContext, id int64, summary string, lastMessageID int64) error {
	query := `
		UPDATE chats
		SET summary = $2,
			summary_last_message_id = GREATEST(COALESCE(summary_last_message_id, 0), $3)
		WHERE id = $1
		  AND (summary_last_message_id IS NULL OR summary_last_message_id <= $3)
	`
	if _, err := exec.ExecContext(ctx, query, id, summary, lastMessageID); err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}
