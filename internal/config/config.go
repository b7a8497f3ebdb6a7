package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrConfiguration marks a configuration that cannot start the service.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	App       AppConfig       `toml:"app"`
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Dataset   DatasetConfig   `toml:"dataset"`
	RAG       RAGConfig       `toml:"rag"`
	Session   SessionConfig   `toml:"session"`
	Redis     RedisConfig     `toml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
}

type AppConfig struct {
	Name    string `toml:"name"`
	Env     string `toml:"env"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	GinMode string `toml:"gin_mode"`
}

// LLMConfig points at the hosted chat model. BaseURL is the OpenAI-compatible
// surface, NativeBaseURL the provider API used for model listing.
type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	NativeBaseURL  string `toml:"native_base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type EmbeddingConfig struct {
	Provider       string `toml:"provider"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BatchSize      int    `toml:"batch_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type DatasetConfig struct {
	BaseURL        string `toml:"base_url"`
	Name           string `toml:"name"`
	Config         string `toml:"config"`
	Split          string `toml:"split"`
	Token          string `toml:"token"`
	PageSize       int    `toml:"page_size"`
	MaxRecords     int    `toml:"max_records"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	BodyField      string `toml:"body_field"`
	TitleField     string `toml:"title_field"`
	SourceField    string `toml:"source_field"`
	CategoryField  string `toml:"category_field"`
}

type RAGConfig struct {
	TopK            int `toml:"top_k"`
	MinBodyLength   int `toml:"min_body_length"`
	MaxContextChars int `toml:"max_context_chars"`
}

type SessionConfig struct {
	Backend     string `toml:"backend"`
	MaxSessions int    `toml:"max_sessions"`
	TTLSeconds  int    `toml:"ttl_seconds"`
	CookieName  string `toml:"cookie_name"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type RabbitMQConfig struct {
	URL       string `toml:"url"`
	TurnQueue string `toml:"turn_queue"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

// Validate reports settings the service cannot run without. Only the LLM
// credential is mandatory; everything else has a usable default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: GOOGLE_API_KEY not found, add it to the environment or .env file", ErrConfiguration)
	}
	switch c.Embedding.Provider {
	case "huggingface", "openai":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, c.Embedding.Provider)
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrConfiguration, c.Session.Backend)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("%w: rag.top_k must be positive", ErrConfiguration)
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

func (c *Config) DatasetTimeout() time.Duration {
	return time.Duration(c.Dataset.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "medinsight",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		LLM: LLMConfig{
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai",
			NativeBaseURL:  "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 90,
		},
		Embedding: EmbeddingConfig{
			Provider:       "huggingface",
			BaseURL:        "https://router.huggingface.co/hf-inference/models",
			Model:          "sentence-transformers/all-MiniLM-L6-v2",
			BatchSize:      32,
			TimeoutSeconds: 60,
		},
		Dataset: DatasetConfig{
			BaseURL:        "https://datasets-server.huggingface.co",
			Name:           "Laurent1/MedQuad-MedicalQnADataset_128tokens_max",
			Config:         "default",
			Split:          "train",
			PageSize:       100,
			TimeoutSeconds: 30,
			BodyField:      "text",
			TitleField:     "question",
			SourceField:    "url",
			CategoryField:  "qtype",
		},
		RAG: RAGConfig{
			TopK:            4,
			MinBodyLength:   10,
			MaxContextChars: 12000,
		},
		Session: SessionConfig{
			Backend:     "memory",
			MaxSessions: 1000,
			TTLSeconds:  3600,
			CookieName:  "medinsight_session",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		RabbitMQ: RabbitMQConfig{
			TurnQueue: "medinsight.chat.turns",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.NativeBaseURL = getEnv("LLM_NATIVE_BASE_URL", cfg.LLM.NativeBaseURL)
	cfg.LLM.APIKey = getEnv("GOOGLE_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.APIKey = getEnv("HF_TOKEN", cfg.Embedding.APIKey)
	cfg.Embedding.BatchSize = getEnvAsInt("EMBEDDING_BATCH_SIZE", cfg.Embedding.BatchSize)

	cfg.Dataset.BaseURL = getEnv("DATASET_BASE_URL", cfg.Dataset.BaseURL)
	cfg.Dataset.Name = getEnv("DATASET_NAME", cfg.Dataset.Name)
	cfg.Dataset.Split = getEnv("DATASET_SPLIT", cfg.Dataset.Split)
	cfg.Dataset.Token = getEnv("HF_TOKEN", cfg.Dataset.Token)
	cfg.Dataset.MaxRecords = getEnvAsInt("DATASET_MAX_RECORDS", cfg.Dataset.MaxRecords)
	cfg.Dataset.TimeoutSeconds = getEnvAsInt("DATASET_TIMEOUT_SECONDS", cfg.Dataset.TimeoutSeconds)

	cfg.RAG.TopK = getEnvAsInt("RAG_TOP_K", cfg.RAG.TopK)

	cfg.Session.Backend = getEnv("SESSION_BACKEND", cfg.Session.Backend)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.TurnQueue = getEnv("RABBITMQ_TURN_QUEUE", cfg.RabbitMQ.TurnQueue)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
