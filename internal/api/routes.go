// Package api wires the HTTP routes of the chat service.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/api/handlers"
	"github.com/nizami/nizami-backend/internal/api/middleware"
	"github.com/nizami/nizami-backend/internal/auth"
	"github.com/nizami/nizami-backend/internal/services"
)

// RouteConfig tunes the routes. A nil Validator disables authentication.
type RouteConfig struct {
	Validator      *auth.Validator
	TurnsPerMin    int
	RequestsPerMin int
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, svc *services.Services, cfg RouteConfig, logger logrus.FieldLogger) {
	if cfg.TurnsPerMin <= 0 {
		cfg.TurnsPerMin = 30
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 100
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "nizami-backend",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authRequired := middleware.AuthRequired(cfg.Validator)

	api := app.Group("/api/v1", authRequired, middleware.APIRateLimit(cfg.RequestsPerMin, time.Minute))

	// Chats
	api.Post("/chats", handlers.CreateChat(svc))
	api.Get("/chats/:id", handlers.GetChat(svc))
	api.Get("/chats/:id/messages", handlers.GetChatMessages(svc))
	api.Post("/chats/:id/turns", middleware.TurnRateLimit(cfg.TurnsPerMin), handlers.CreateTurn(svc))
	api.Get("/messages/:id/steps", handlers.GetMessageSteps(svc))

	// Reference documents
	api.Get("/reference-documents", handlers.ListReferenceDocuments(svc))
	api.Get("/reference-documents/:id", handlers.GetReferenceDocument(svc))
	api.Delete("/reference-documents/:id", handlers.DeleteReferenceDocument(svc))

	// WebSocket routes
	stream := handlers.NewTurnStreamHandler(svc, logger)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chats/:id/turns", authRequired, handlers.ChatAccess(svc), websocket.New(stream.Stream))
}
