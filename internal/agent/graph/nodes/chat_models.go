package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/barista-agent-poc/server/internal/agent/model"
	logx "github.com/barista-agent-poc/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Barista *model.BaristaModelConfig
}

// ChatModels holds the barista chat model behind Eino's tool-calling
// interface so the graph can be exercised with a scripted model in tests.
type ChatModels struct {
	Barista          einomodel.ToolCallingChatModel
	BaristaModelName string
}

// NewChatModels creates the barista chat model with the given configuration
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Barista.Model,
		Temperature: &config.Barista.Temperature,
		MaxTokens:   &config.Barista.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating barista model")
		return nil, fmt.Errorf("error creating barista model: %w", err)
	}

	return &ChatModels{
		Barista:          chatModel,
		BaristaModelName: config.Barista.Model,
	}, nil
}
