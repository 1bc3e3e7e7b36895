package services

import (
	"context"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/pipeline"
	"github.com/nizami/nizami-backend/internal/repository"
)

// TurnRunner runs chat turns
type TurnRunner interface {
	RunTurn(ctx context.Context, req pipeline.TurnRequest) (*models.Message, error)
}

// Services holds what the HTTP handlers need
type Services struct {
	Turns         TurnRunner
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Documents     repository.ReferenceDocumentRepository
	StepLogs      repository.StepLogRepository
}
