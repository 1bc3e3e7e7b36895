// Package bootstrap builds the engine and its collaborators from
// configuration. Both binaries share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/audit"
	"github.com/nizami/nizami-backend/internal/cache"
	"github.com/nizami/nizami-backend/internal/config"
	"github.com/nizami/nizami-backend/internal/database"
	"github.com/nizami/nizami-backend/internal/db"
	"github.com/nizami/nizami-backend/internal/gibberish"
	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/pipeline"
	"github.com/nizami/nizami-backend/internal/prompts"
	"github.com/nizami/nizami-backend/internal/repository/postgres"
	"github.com/nizami/nizami-backend/internal/retrieval"
	"github.com/nizami/nizami-backend/internal/services"
	"github.com/nizami/nizami-backend/internal/summary"
	"github.com/nizami/nizami-backend/internal/vectorstore"
)

// NewLogger creates the process logger from the log section
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// ModelOptions converts a model section
func ModelOptions(c config.ModelConfig) llm.ModelOptions {
	return llm.ModelOptions{Name: c.Name, ReasoningEffort: c.ReasoningEffort, Temperature: c.Temperature}
}

// GibberishConfig converts the gibberish section
func GibberishConfig(c config.GibberishConfig, logger logrus.FieldLogger) gibberish.Config {
	cfg := gibberish.DefaultConfig()
	if c.RealThreshold > 0 {
		cfg.RealThreshold = c.RealThreshold
	}
	if c.SuspiciousThreshold > 0 {
		cfg.SuspiciousThreshold = c.SuspiciousThreshold
	}
	if c.LLMGibberishMinConf > 0 {
		cfg.LLMGibberishConfidence = c.LLMGibberishMinConf
	}
	if c.LLMRealMinConf > 0 {
		cfg.LLMRealConfidence = c.LLMRealMinConf
	}
	cfg.LLMEnabled = c.LLMEnabled
	cfg.Logger = logger
	return cfg
}

// App is a fully wired engine
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *database.DB
	Prompts  *prompts.Registry
	Engine   *pipeline.Engine
	Services *services.Services

	closers []func()
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build connects to every backing service and wires the engine. The
// prompt watcher, when enabled, stops with ctx.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	// Relational store
	sqlDB, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	app.closers = append(app.closers, func() { sqlDB.Close() })

	conversations := postgres.NewConversationRepository(sqlDB.DB)
	messages := postgres.NewMessageRepository(sqlDB.DB)
	documents := postgres.NewReferenceDocumentRepository(sqlDB.DB)
	stepLogs := postgres.NewStepLogRepository(sqlDB.DB)

	// Exchange log tier
	var exchanges audit.ExchangeSink = audit.NewLogrusSink(logger)
	if cfg.LogsDatabase.Enabled() {
		logsDB, err := db.Connect(ctx, cfg.LogsDatabase)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, logsDB.Close)
		exchanges = audit.NewPgxSink(logsDB)
	} else {
		logger.Info("No logs database configured, LLM exchanges go to the application log")
	}

	// LLM
	openai := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Timeout:        cfg.OpenAI.Timeout,
		EmbeddingModel: cfg.Models.Embedding,
	})
	client := llm.NewInstrumentedClient(openai, openai, cfg.Models.Embedding, llm.NewCircuitBreaker(5, 30*time.Second), logger)

	// Embedding cache
	var store cache.Store
	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisStore(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func() { redisStore.Close() })
		store = redisStore
	} else {
		memStore := cache.NewMemoryStore(5 * time.Minute)
		app.closers = append(app.closers, func() { memStore.Close() })
		store = memStore
	}
	embedder := cache.NewEmbedder(client, store, cfg.Models.Embedding, cfg.Redis.TTL, logger)

	// Chunk index
	var chunks retrieval.ChunkStore
	switch cfg.Retrieval.Backend {
	case "", "pgvector":
		chunks = vectorstore.NewPGVectorStore(sqlDB.DB, cfg.Retrieval.EfSearch)
	case "qdrant":
		chunks = vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    cfg.Qdrant.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Retrieval.Backend)
	}

	// Prompts
	registry, err := prompts.NewRegistry(logger)
	if err != nil {
		return nil, err
	}
	if cfg.Prompts.Dir != "" {
		if err := registry.LoadDir(cfg.Prompts.Dir); err != nil {
			return nil, err
		}
		if cfg.Prompts.Watch {
			if err := registry.Watch(ctx); err != nil {
				return nil, err
			}
		}
	}
	promptRepo := postgres.NewPromptRepository(sqlDB.DB)
	if err := registry.Refresh(ctx, promptRepo); err != nil {
		logger.WithError(err).Warn("Failed to load prompt overrides, using defaults")
	}
	if cfg.Prompts.RefreshInterval > 0 {
		refreshCtx, stop := context.WithCancel(ctx)
		app.closers = append(app.closers, stop)
		registry.RefreshEvery(refreshCtx, promptRepo, cfg.Prompts.RefreshInterval)
	}
	app.Prompts = registry

	var escalator gibberish.Escalator
	if cfg.Gibberish.LLMEnabled {
		escalator = gibberish.NewLLMEscalator(client, registry, ModelOptions(cfg.Models.Classifier), cfg.Gibberish.LLMTimeout)
	}

	retrievalCfg := retrieval.DefaultConfig()
	if cfg.Retrieval.FallbackMultiplier > 0 {
		retrievalCfg.FallbackMultiplier = cfg.Retrieval.FallbackMultiplier
	}
	if cfg.Retrieval.FallbackFloor > 0 {
		retrievalCfg.FallbackFloor = cfg.Retrieval.FallbackFloor
	}

	engineCfg := pipeline.DefaultConfig()
	engineCfg.Models = pipeline.Models{
		Router:      ModelOptions(cfg.Models.Router),
		Relevance:   ModelOptions(cfg.Models.Relevance),
		Rephrase:    ModelOptions(cfg.Models.Rephrase),
		Translation: ModelOptions(cfg.Models.Translation),
		LegalAnswer: ModelOptions(cfg.Models.LegalAnswer),
	}
	engineCfg.Gibberish = GibberishConfig(cfg.Gibberish, logger)
	if cfg.Retrieval.K > 0 {
		engineCfg.K = cfg.Retrieval.K
	}
	if cfg.History.Recent > 0 {
		engineCfg.RecentMessages = cfg.History.Recent
	}
	if cfg.History.Context > 0 {
		engineCfg.ContextMessages = cfg.History.Context
	}

	app.Engine = pipeline.NewEngine(pipeline.Dependencies{
		Conversations: conversations,
		Messages:      messages,
		LLM:           client,
		Prompts:       registry,
		Summaries:     summary.NewSummarizer(conversations, messages, client, registry, ModelOptions(cfg.Models.Summarizer), logger),
		Candidates:    retrieval.NewCandidateResolver(embedder, documents, cfg.Retrieval.CandidateDocuments),
		Retriever:     retrieval.NewRetriever(embedder, chunks, retrievalCfg, logger),
		Steps:         audit.NewStepRecorder(stepLogs, logger),
		Exchanges:     exchanges,
		Escalator:     escalator,
		Logger:        logger,
	}, pipeline.WithConfig(engineCfg))

	app.Services = &services.Services{
		Turns:         app.Engine,
		Conversations: conversations,
		Messages:      messages,
		Documents:     documents,
		StepLogs:      stepLogs,
	}

	ok = true
	return app, nil
}

// ErrMissingAPIKey is returned when no OpenAI key is configured
var ErrMissingAPIKey = errors.New("openai api key is not configured")

// Validate checks the settings Build cannot default
func Validate(cfg *config.Config) error {
	if cfg.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return errors.New("auth is enabled but auth.jwt_secret is empty")
	}
	return nil
}
