package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/barista-agent-poc/server/internal/agent/graph"
	"github.com/barista-agent-poc/server/internal/agent/model"
	"github.com/barista-agent-poc/server/internal/agent/repo"
	"github.com/barista-agent-poc/server/internal/core"
	"github.com/barista-agent-poc/server/internal/server"
	logx "github.com/barista-agent-poc/server/pkg/logger"
	pkgredis "github.com/barista-agent-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the barista agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP surface
	Server server.Config

	// Infrastructure
	Redis   pkgredis.Config
	Session model.SessionStoreConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Barista      model.BaristaModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	sessionRepo, err := newSessionRepo(envCfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise session store")
	}

	runner, err := graph.BuildBaristaGraph(ctx, graph.Config{
		APIKey:       envCfg.APIKey,
		BaseURL:      envCfg.BaseURL,
		BaristaModel: envCfg.Barista,
		Prompt:       envCfg.Prompt,
		Conversation: envCfg.Conversation,
		SessionRepo:  sessionRepo,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	srv, err := server.New(envCfg.Server, runner)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise HTTP server")
	}

	logx.Info().
		Str("addr", envCfg.Server.Addr).
		Str("session_driver", envCfg.Session.Driver).
		Msg("Barista agent listening")

	if err := http.ListenAndServe(envCfg.Server.Addr, srv.Handler()); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server stopped")
	}
}

// newSessionRepo picks the session store driver. Redis keeps sessions across
// restarts and lets several replicas share them; memory is for local runs.
func newSessionRepo(cfg AppConfig) (model.SessionRepository, error) {
	switch cfg.Session.Driver {
	case "redis":
		rdb, err := cfg.Redis.New()
		if err != nil {
			return nil, err
		}
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, err
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisSessionRepository(rdb, ttl), nil
	default:
		return repo.NewMemorySessionRepository(), nil
	}
}
