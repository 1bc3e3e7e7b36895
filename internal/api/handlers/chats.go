package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/nizami/nizami-backend/internal/api/middleware"
	apimodels "github.com/nizami/nizami-backend/internal/api/models"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository"
	"github.com/nizami/nizami-backend/internal/services"
)

// CreateChat creates a new chat owned by the caller
func CreateChat(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req apimodels.CreateChatRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
			}
		}
		if req.Title == "" {
			req.Title = "New Chat"
		}

		chat := &models.Conversation{Title: req.Title}
		if userID := middleware.GetUserID(c); userID != "" {
			chat.UserID = &userID
		}
		if err := svc.Conversations.Create(c.Context(), chat); err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(chat)
	}
}

// GetChat returns a chat with its summary
func GetChat(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chat, err := loadChat(c, svc)
		if err != nil {
			return err
		}
		return c.JSON(chat)
	}
}

// GetChatMessages returns the messages of a chat in order
func GetChatMessages(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chat, err := loadChat(c, svc)
		if err != nil {
			return err
		}
		messages, err := svc.Messages.ListByConversation(c.Context(), chat.ID)
		if err != nil {
			return err
		}
		if messages == nil {
			messages = []*models.Message{}
		}
		return c.JSON(fiber.Map{"messages": messages})
	}
}

// CreateTurn runs one chat turn and returns the assistant reply
func CreateTurn(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chat, err := loadChat(c, svc)
		if err != nil {
			return err
		}

		var req apimodels.TurnRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.UUID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "uuid is required")
		}

		reply, err := svc.Turns.RunTurn(c.UserContext(), turnRequest(chat.ID, req))
		if err != nil {
			return err
		}
		return c.JSON(apimodels.TurnResponse{Message: reply})
	}
}

// GetMessageSteps returns the step telemetry of a user message
func GetMessageSteps(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		message, err := svc.Messages.Get(c.Context(), id)
		if err != nil {
			return err
		}
		if _, err := ownedChat(c, svc, message.ConversationID); err != nil {
			return err
		}

		steps, err := svc.StepLogs.ListByMessage(c.Context(), id)
		if err != nil {
			return err
		}
		if steps == nil {
			steps = []*models.StepLog{}
		}
		return c.JSON(fiber.Map{"steps": steps})
	}
}

// ChatAccess resolves the :id chat for websocket routes before the upgrade
func ChatAccess(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		chat, err := loadChat(c, svc)
		if err != nil {
			return err
		}
		c.Locals("chat_id", chat.ID)
		return c.Next()
	}
}

func loadChat(c *fiber.Ctx, svc *services.Services) (*models.Conversation, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	return ownedChat(c, svc, id)
}

// ownedChat hides chats of other users behind a 404. Authenticated callers
// see only their own chats; ownerless chats exist only for deployments
// running without auth.
func ownedChat(c *fiber.Ctx, svc *services.Services, id int64) (*models.Conversation, error) {
	chat, err := svc.Conversations.Get(c.Context(), id)
	if err != nil {
		return nil, err
	}
	userID := middleware.GetUserID(c)
	if userID != "" && (chat.UserID == nil || *chat.UserID != userID) {
		return nil, repository.ErrNotFound
	}
	return chat, nil
}
