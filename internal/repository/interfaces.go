package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nizami/nizami-backend/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint (message uuid) is violated
	ErrDuplicate = errors.New("duplicate")
)

// LockedConversation is handed to LockForSummary callbacks. Reads and writes
// made through it happen inside the transaction holding the row lock.
type LockedConversation interface {
	Conversation() *models.Conversation
	// MessagesInRange returns the conversation's messages with afterID < id <= uptoID, ascending
	MessagesInRange(ctx context.Context, afterID, uptoID int64) ([]*models.Message, error)
	SaveSummary(ctx context.Context, summary string, lastMessageID int64) error
}

// ConversationRepository defines conversation storage operations
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	Get(ctx context.Context, id int64) (*models.Conversation, error)
	// SaveSummary stores a summary without locking. Used for the lazily created
	// first summary; it never moves the watermark backwards.
	SaveSummary(ctx context.Context, id int64, summary string, lastMessageID int64) error
	// LockForSummary runs fn while holding an exclusive lock on the
	// conversation row. The lock is released when fn returns.
	LockForSummary(ctx context.Context, id int64, fn func(ctx context.Context, locked LockedConversation) error) error
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	// Create inserts a message and fills its ID and CreatedAt. Returns
	// ErrDuplicate if the uuid already exists.
	Create(ctx context.Context, message *models.Message) error
	Get(ctx context.Context, id int64) (*models.Message, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// FirstChild returns the earliest message parented to parentID
	FirstChild(ctx context.Context, parentID int64) (*models.Message, error)
	// ListByConversation returns every message in creation order
	ListByConversation(ctx context.Context, conversationID int64) ([]*models.Message, error)
	// Recent returns up to limit latest messages in chronological order,
	// skipping excludeID
	Recent(ctx context.Context, conversationID, excludeID int64, limit int) ([]*models.Message, error)
	// After returns messages with id > afterID in chronological order,
	// skipping excludeID
	After(ctx context.Context, conversationID, afterID, excludeID int64) ([]*models.Message, error)
	SetUsedQuery(ctx context.Context, id int64, query string) error
}

// ReferenceDocumentRepository defines reference document storage operations
type ReferenceDocumentRepository interface {
	Get(ctx context.Context, id int64) (*models.ReferenceDocument, error)
	List(ctx context.Context, limit, offset int) ([]*models.ReferenceDocument, error)
	// NearestByDescription ranks documents by cosine distance between their
	// description embedding and the given vector
	NearestByDescription(ctx context.Context, embedding []float32, limit int) ([]int64, error)
	// Delete purges the document's indexed chunks and then the document
	Delete(ctx context.Context, id int64) error
}

// StepLogRepository stores pipeline step telemetry
type StepLogRepository interface {
	Create(ctx context.Context, entry *models.StepLog) error
	ListByMessage(ctx context.Context, messageID int64) ([]*models.StepLog, error)
}

// PromptRepository exposes prompt overrides stored in the database
type PromptRepository interface {
	List(ctx context.Context) ([]*models.Prompt, error)
}
