package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/api"
	"github.com/nizami/nizami-backend/internal/auth"
	"github.com/nizami/nizami-backend/internal/bootstrap"
	"github.com/nizami/nizami-backend/internal/config"
	"github.com/nizami/nizami-backend/internal/database"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := bootstrap.NewLogger(cfg.Log)

	if err := bootstrap.Validate(cfg); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if cfg.LogsDatabase.Enabled() {
		if err := database.RunLogsMigrations(cfg.LogsDatabase); err != nil {
			logger.WithError(err).Fatal("Failed to run logs database migrations")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer app.Close()

	var validator *auth.Validator
	if cfg.Auth.Enabled {
		validator = auth.NewValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Warn("Authentication is disabled")
	}

	server := api.NewApp(api.AppConfig{
		CORSOrigins:  os.Getenv("NIZAMI_CORS_ORIGINS"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		AccessLog:    true,
	}, logger)
	api.SetupRoutes(server, app.Services, api.RouteConfig{
		Validator:      validator,
		RequestsPerMin: cfg.Server.RateLimit,
	}, logger)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		if err := server.ShutdownWithTimeout(30 * time.Second); err != nil {
			logger.WithError(err).Error("Shutdown failed")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.WithField("addr", addr).Info("Nizami backend starting")
	if err := server.Listen(addr); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
