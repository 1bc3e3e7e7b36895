// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/google/uuid"

	domain "github.com/nizami/nizami-backend/internal/models"
)

// CreateChatRequest is the body of POST /chats
type CreateChatRequest struct {
	Title string `json:"title"`
}

// TurnRequest is one user message. UUID is generated by the client and
// makes retries idempotent.
type TurnRequest struct {
	UUID uuid.UUID `json:"uuid"`
	Text string    `json:"text"`
}

// TurnResponse carries the assistant reply
type TurnResponse struct {
	Message *domain.Message `json:"message"`
}

// Stream event types
const (
	EventStep  = "step"
	EventReply = "reply"
	EventError = "error"
)

// StreamEvent is one frame of the turn websocket
type StreamEvent struct {
	Type       string          `json:"type"`
	UUID       uuid.UUID       `json:"uuid,omitempty"`
	Step       string          `json:"step,omitempty"`
	Branch     string          `json:"branch,omitempty"`
	DurationMS int64           `json:"duration_ms,omitempty"`
	Failed     bool            `json:"failed,omitempty"`
	Message    *domain.Message `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
}
