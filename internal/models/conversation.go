package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Conversation is one end-user chat. Summary folds every message up to
// SummaryLastMessageID; the watermark only ever moves forward.
type Conversation struct {
	ID                   int64     `json:"id" db:"id"`
	Title                string    `json:"title" db:"title"`
	UserID               *string   `json:"user_id,omitempty" db:"user_id"`
	Summary              string    `json:"summary" db:"summary"`
	SummaryLastMessageID *int64    `json:"summary_last_message_id,omitempty" db:"summary_last_message_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// Watermark returns the id of the last summarized message, or 0 when nothing
// has been summarized yet.
func (c *Conversation) Watermark() int64 {
	if c == nil || c.SummaryLastMessageID == nil {
		return 0
	}
	return *c.SummaryLastMessageID
}

// HasSummary reports whether a rolling summary exists
func (c *Conversation) HasSummary() bool {
	return c != nil && c.Summary != ""
}

// Message is a single chat message. Only UsedQuery and the disclaimer fields
// are written after creation, each exactly once.
type Message struct {
	ID                            int64     `json:"id" db:"id"`
	ConversationID                int64     `json:"chat_id" db:"chat_id"`
	UUID                          uuid.UUID `json:"uuid" db:"uuid"`
	Role                          Role      `json:"role" db:"role"`
	Text                          string    `json:"text" db:"text"`
	Language                      string    `json:"language" db:"language"`
	ParentID                      *int64    `json:"parent_id,omitempty" db:"parent_id"`
	UsedQuery                     *string   `json:"used_query,omitempty" db:"used_query"`
	ShowTranslationDisclaimer     bool      `json:"show_translation_disclaimer" db:"show_translation_disclaimer"`
	TranslationDisclaimerLanguage *string   `json:"translation_disclaimer_language,omitempty" db:"translation_disclaimer_language"`
	CreatedAt                     time.Time `json:"created_at" db:"created_at"`
}

// Query returns the rewritten query if one was stored, otherwise the raw text
func (m *Message) Query() string {
	if m.UsedQuery != nil && *m.UsedQuery != "" {
		return *m.UsedQuery
	}
	return m.Text
}

// IsUser reports whether the message was written by the end user
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}
