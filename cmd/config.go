package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/people-agent/server/internal/agent/auth"
	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/msgraph"
	"github.com/people-agent/server/internal/agent/people"
	"github.com/people-agent/server/internal/agent/people/models"
	"github.com/people-agent/server/internal/agent/repo"
	"github.com/people-agent/server/internal/agent/session"
	"github.com/people-agent/server/internal/core"
	logx "github.com/people-agent/server/pkg/logger"
	pkgredis "github.com/people-agent/server/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`
	HTTPAddr    string           `envconfig:"HTTP_ADDR" default:":8080"`

	// Directory access
	Auth  model.AuthConfig
	Graph model.GraphConfig

	// LLM provider
	ChatModel model.ChatModelConfig
	Intent    model.IntentModelConfig
	Response  model.ResponseModelConfig

	// Agent configs
	Conversation model.ConversationConfig
	Session      model.SessionConfig

	// Infrastructure
	Store model.StoreConfig
	Redis pkgredis.Config
}

func (c *AppConfig) validate() error {
	switch c.Conversation.FetchMode {
	case model.FetchParallel, model.FetchSelective:
	default:
		return fmt.Errorf("FETCH_MODE must be %q or %q, got %q", model.FetchParallel, model.FetchSelective, c.Conversation.FetchMode)
	}
	switch c.Store.Backend {
	case model.BackendMemory, model.BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", model.BackendMemory, model.BackendRedis, c.Store.Backend)
	}
	if c.Conversation.MemoryLimit <= 0 {
		return errors.New("CONVERSATION_MEMORY_LIMIT must be positive")
	}
	return nil
}

// loadConfig reads envFile when present, then the environment.
func loadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// app is the wired object graph shared by the commands.
type app struct {
	cfg      *AppConfig
	tokens   auth.TokenSource
	graph    *msgraph.Client
	sessions *session.Store
	closers  []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logx.Warn().Err(err).Msg("close failed")
		}
	}
}

// bootstrap loads configuration, initialises logging and wires directory
// access. Commands that answer questions call startSessions afterwards.
func bootstrap(logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: level, Output: logOut})

	tokens, err := auth.NewCredentialProvider(cfg.Auth)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, tokens: tokens, graph: msgraph.New(cfg.Graph)}, nil
}

// startSessions wires the chat models and the storage backend into a
// session store.
func (a *app) startSessions(ctx context.Context) error {
	cfg := a.cfg
	chatModels, err := models.NewChatModels(ctx, models.ChatModelsConfig{
		Backend:    cfg.ChatModel,
		IntentCfg:  cfg.Intent,
		RespConfig: cfg.Response,
	})
	if err != nil {
		return err
	}
	classifier := people.NewIntentClassifier(chatModels.Intent, cfg.Intent)
	composer := people.NewResponseComposer(chatModels.Response, cfg.Response, cfg.Conversation.CitationsEnabled, nil)

	var (
		history   model.ConversationRepository
		responses model.ResponseCache
	)
	switch cfg.Store.Backend {
	case model.BackendRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		history = repo.NewRedisConversationRepository(rdb, cfg.Session.IdleTTL)
		responses = repo.NewRedisResponseCache(rdb, cfg.Conversation.ResponseCacheTTL, nil)
		logx.Info().Msg("Connected to Redis successfully")
	default:
		history = repo.NewMemoryConversationRepository()
	}

	tokens, graph := a.tokens, a.graph
	factory := func(ctx context.Context, identity string) (*people.Agent, error) {
		return people.NewAgent(ctx, identity, people.Deps{
			Tokens:     tokens,
			Directory:  graph,
			Classifier: classifier,
			Composer:   composer,
			History:    history,
			Responses:  responses,
			Config:     cfg.Conversation,
		})
	}
	a.sessions = session.NewStore(factory, cfg.Session, nil)

	logx.Info().
		Str("environment", cfg.Environment.String()).
		Str("provider", cfg.ChatModel.Provider).
		Str("intent_model", chatModels.IntentModelName).
		Str("response_model", chatModels.ResponseModelName).
		Str("fetch_mode", cfg.Conversation.FetchMode).
		Str("store", cfg.Store.Backend).
		Msg("people agent ready")
	return nil
}
