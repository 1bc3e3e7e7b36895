package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig    `mapstructure:"server"`
	Log          LogConfig       `mapstructure:"log"`
	Database     DatabaseConfig  `mapstructure:"database"`
	LogsDatabase DatabaseConfig  `mapstructure:"logs_database"`
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Models       ModelsConfig    `mapstructure:"models"`
	Gibberish    GibberishConfig `mapstructure:"gibberish"`
	Retrieval    RetrievalConfig `mapstructure:"retrieval"`
	Qdrant       QdrantConfig    `mapstructure:"qdrant"`
	Redis        RedisConfig     `mapstructure:"redis"`
	Prompts      PromptsConfig   `mapstructure:"prompts"`
	Auth         AuthConfig      `mapstructure:"auth"`
	History      HistoryConfig   `mapstructure:"history"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Enabled reports whether the section names a database to connect to
func (c DatabaseConfig) Enabled() bool {
	return c.Host != "" && c.Database != ""
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ModelConfig selects the model and effort hint for one call site
type ModelConfig struct {
	Name            string   `mapstructure:"name"`
	ReasoningEffort string   `mapstructure:"reasoning_effort"`
	Temperature     *float32 `mapstructure:"temperature"`
}

type ModelsConfig struct {
	Router      ModelConfig `mapstructure:"router"`
	Classifier  ModelConfig `mapstructure:"classifier"`
	Relevance   ModelConfig `mapstructure:"relevance"`
	Summarizer  ModelConfig `mapstructure:"summarizer"`
	Rephrase    ModelConfig `mapstructure:"rephrase"`
	Translation ModelConfig `mapstructure:"translation"`
	LegalAnswer ModelConfig `mapstructure:"legal_answer"`
	Embedding   string      `mapstructure:"embedding"`
}

type GibberishConfig struct {
	RealThreshold       float64       `mapstructure:"real_threshold"`
	SuspiciousThreshold float64       `mapstructure:"suspicious_threshold"`
	LLMEnabled          bool          `mapstructure:"llm_enabled"`
	LLMTimeout          time.Duration `mapstructure:"llm_timeout"`
	LLMGibberishMinConf float64       `mapstructure:"llm_gibberish_min_confidence"`
	LLMRealMinConf      float64       `mapstructure:"llm_real_min_confidence"`
}

type RetrievalConfig struct {
	Backend            string `mapstructure:"backend"`
	K                  int    `mapstructure:"k"`
	CandidateDocuments int    `mapstructure:"candidate_documents"`
	FallbackMultiplier int    `mapstructure:"fallback_multiplier"`
	FallbackFloor      int    `mapstructure:"fallback_floor"`
	EfSearch           int    `mapstructure:"ef_search"`
}

type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	APIKey     string        `mapstructure:"api_key"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type PromptsConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`

	// RefreshInterval reloads database overrides; zero loads them once
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type HistoryConfig struct {
	Recent  int `mapstructure:"recent"`
	Context int `mapstructure:"context"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")

	// Add config paths
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".nizami"))
	}

	setDefaults(v)

	v.SetEnvPrefix("NIZAMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_limit_window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "nizami")
	v.SetDefault("database.database", "nizami")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("logs_database.port", 5432)
	v.SetDefault("logs_database.sslmode", "disable")

	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("models.router.name", "gpt-5-nano")
	v.SetDefault("models.router.reasoning_effort", "minimal")
	v.SetDefault("models.classifier.name", "gpt-4o-mini")
	v.SetDefault("models.classifier.temperature", 0.1)
	v.SetDefault("models.relevance.name", "gpt-5-nano")
	v.SetDefault("models.relevance.reasoning_effort", "low")
	v.SetDefault("models.summarizer.name", "gpt-4o-mini")
	v.SetDefault("models.rephrase.name", "gpt-5-nano")
	v.SetDefault("models.rephrase.reasoning_effort", "low")
	v.SetDefault("models.translation.name", "gpt-4o")
	v.SetDefault("models.legal_answer.name", "gpt-5-mini")
	v.SetDefault("models.legal_answer.reasoning_effort", "low")
	v.SetDefault("models.embedding", "text-embedding-3-small")

	v.SetDefault("gibberish.real_threshold", 0.60)
	v.SetDefault("gibberish.suspicious_threshold", 0.35)
	v.SetDefault("gibberish.llm_enabled", true)
	v.SetDefault("gibberish.llm_timeout", 10*time.Second)
	v.SetDefault("gibberish.llm_gibberish_min_confidence", 0.70)
	v.SetDefault("gibberish.llm_real_min_confidence", 0.60)

	v.SetDefault("retrieval.backend", "pgvector")
	v.SetDefault("retrieval.k", 8)
	v.SetDefault("retrieval.candidate_documents", 10)
	v.SetDefault("retrieval.fallback_multiplier", 20)
	v.SetDefault("retrieval.fallback_floor", 100)
	v.SetDefault("retrieval.ef_search", 32)

	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "document_chunks")
	v.SetDefault("qdrant.timeout", 30*time.Second)

	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("prompts.watch", false)
	v.SetDefault("prompts.refresh_interval", "5m")

	v.SetDefault("history.recent", 5)
	v.SetDefault("history.context", 3)
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("NIZAMI_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = key
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}
}
