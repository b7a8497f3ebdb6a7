package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"medinsight/internal/app"
	"medinsight/internal/cache"
	"medinsight/internal/config"
	"medinsight/internal/metrics"
	rabbitmqClient "medinsight/internal/platform/rabbitmq"
	redisClient "medinsight/internal/platform/redis"
)

type App struct {
	Config    *config.Config
	Answerer  app.Answerer
	Chat      *app.ChatService
	Metrics   *metrics.Metrics
	Documents int

	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *rabbitmqClient.TurnPublisher

	StartedAt time.Time
}

// ReadConfig reads .env, then the config file and environment. A missing
// .env file is not an error.
func ReadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return cfg, nil
}

// LoadConfig is ReadConfig followed by validation.
func LoadConfig() (*config.Config, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New runs the whole build phase: config, corpus, index, then the optional
// Redis and RabbitMQ connections. Any failure is fatal for the caller.
func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log.Printf("llm model=%s key=%s embedding=%s/%s", cfg.LLM.Model, maskSecret(cfg.LLM.APIKey), cfg.Embedding.Provider, cfg.Embedding.Model)

	handle, err := NewPipeline(cfg).Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize rag pipeline failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		Answerer:  handle,
		Metrics:   metrics.New(),
		Documents: handle.DocumentCount(),
		StartedAt: time.Now(),
	}
	a.Metrics.SetIndexedDocuments(a.Documents)

	store, err := a.sessionStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var publisher app.TurnPublisher
	if strings.TrimSpace(cfg.RabbitMQ.URL) != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn
		a.Publisher = rabbitmqClient.NewTurnPublisher(mqConn, cfg.RabbitMQ.TurnQueue)
		publisher = a.Publisher
		log.Printf("publishing chat turns to queue %s", cfg.RabbitMQ.TurnQueue)
	}

	a.Chat = app.NewChatService(handle, store, publisher, a.Metrics, "web")
	return a, nil
}

func (a *App) sessionStore(ctx context.Context) (app.SessionStore, error) {
	cfg := a.Config
	if cfg.Session.Backend == "redis" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
		log.Printf("session store: redis %s ttl=%s", cfg.Redis.Addr, cfg.SessionTTL())
		return cache.NewRedisSessionStore(redisCli, cfg.SessionTTL()), nil
	}
	log.Printf("session store: memory max=%d ttl=%s", cfg.Session.MaxSessions, cfg.SessionTTL())
	store := cache.NewMemorySessionStore(cfg.Session.MaxSessions, cfg.SessionTTL())
	store.OnSizeChange(a.Metrics.SetActiveSessions)
	return store, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
