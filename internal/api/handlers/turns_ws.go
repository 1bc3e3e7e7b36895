package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apimodels "github.com/nizami/nizami-backend/internal/api/models"
	"github.com/nizami/nizami-backend/internal/pipeline"
	"github.com/nizami/nizami-backend/internal/services"
)

func turnRequest(chatID int64, req apimodels.TurnRequest) pipeline.TurnRequest {
	return pipeline.TurnRequest{ChatID: chatID, UUID: req.UUID, Text: req.Text}
}

// TurnStreamHandler runs turns over a websocket, pushing one event per
// executed step before the reply
type TurnStreamHandler struct {
	svc    *services.Services
	logger logrus.FieldLogger
}

// NewTurnStreamHandler creates a handler
func NewTurnStreamHandler(svc *services.Services, logger logrus.FieldLogger) *TurnStreamHandler {
	return &TurnStreamHandler{svc: svc, logger: logger}
}

// Stream handles WebSocket /ws/chats/:id/turns. Each inbound frame is a
// TurnRequest; the connection stays open for further turns.
func (h *TurnStreamHandler) Stream(c *websocket.Conn) {
	defer c.Close()

	chatID, ok := c.Locals("chat_id").(int64)
	if !ok {
		_ = c.WriteJSON(apimodels.StreamEvent{Type: apimodels.EventError, Error: "unknown chat"})
		return
	}

	// Parallel steps report concurrently
	var mu sync.Mutex
	write := func(ev apimodels.StreamEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return c.WriteJSON(ev)
	}

	for {
		var req apimodels.TurnRequest
		if err := c.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).WithField("chat_id", chatID).Debug("Turn stream closed")
			}
			return
		}
		if req.UUID == uuid.Nil {
			if err := write(apimodels.StreamEvent{Type: apimodels.EventError, Error: "uuid is required"}); err != nil {
				return
			}
			continue
		}

		turn := turnRequest(chatID, req)
		turn.Observer = func(ev pipeline.Event) {
			_ = write(apimodels.StreamEvent{
				Type:       apimodels.EventStep,
				UUID:       req.UUID,
				Step:       string(ev.Step),
				Branch:     string(ev.Branch),
				DurationMS: ev.Duration.Milliseconds(),
				Failed:     ev.Err != nil,
			})
		}

		reply, err := h.svc.Turns.RunTurn(context.Background(), turn)
		ev := apimodels.StreamEvent{Type: apimodels.EventReply, UUID: req.UUID, Message: reply}
		if err != nil {
			h.logger.WithError(err).WithField("chat_id", chatID).Warn("Streamed turn failed")
			ev = apimodels.StreamEvent{Type: apimodels.EventError, UUID: req.UUID, Error: err.Error()}
		}
		if err := write(ev); err != nil {
			return
		}
	}
}
