package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/api/handlers"
)

// AppConfig configures the Fiber application
type AppConfig struct {
	CORSOrigins  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// AccessLog enables the per-request log line
	AccessLog bool
}

// NewApp creates the Fiber application with the shared middleware
func NewApp(cfg AppConfig, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Nizami Backend",
		ErrorHandler: handlers.ErrorHandler(log),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{Output: log.Writer()}))
	}
	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
			AllowMethods: "GET, POST, DELETE, OPTIONS",
		}))
	}
	return app
}
