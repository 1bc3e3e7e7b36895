package bootstrap

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/nizami/nizami-backend/internal/config"
	"github.com/nizami/nizami-backend/internal/llm"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(config.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	fallback := NewLogger(config.LogConfig{Level: "loud"})
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, fallback.Formatter)
}

func TestModelOptions(t *testing.T) {
	temp := float32(0.1)
	got := ModelOptions(config.ModelConfig{Name: "gpt-4o-mini", ReasoningEffort: "low", Temperature: &temp})
	assert.Equal(t, llm.ModelOptions{Name: "gpt-4o-mini", ReasoningEffort: "low", Temperature: &temp}, got)
}

func TestGibberishConfigKeepsDefaults(t *testing.T) {
	cfg := GibberishConfig(config.GibberishConfig{RealThreshold: 0.7}, logrus.New())
	assert.Equal(t, 0.7, cfg.RealThreshold)
	assert.Equal(t, 0.35, cfg.SuspiciousThreshold)
	assert.False(t, cfg.LLMEnabled)
	assert.NotNil(t, cfg.Logger)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{}
	assert.ErrorIs(t, Validate(cfg), ErrMissingAPIKey)

	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, Validate(cfg))

	cfg.Auth.Enabled = true
	assert.Error(t, Validate(cfg))

	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, Validate(cfg))
}
