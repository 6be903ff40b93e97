package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/people-agent/server/internal/agent/model"
	logx "github.com/people-agent/server/pkg/logger"
)

// ChatModelsConfig holds the configuration for chat model creation
type ChatModelsConfig struct {
	Backend    model.ChatModelConfig
	IntentCfg  model.IntentModelConfig
	RespConfig model.ResponseModelConfig
}

// ChatModels holds the classifier and answer chat models
type ChatModels struct {
	Intent            einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	IntentModelName   string
	ResponseModelName string
}

// NewChatModels creates both chat models on the configured provider.
func NewChatModels(ctx context.Context, config ChatModelsConfig) (*ChatModels, error) {
	switch strings.ToLower(config.Backend.Provider) {
	case model.ProviderAzure, "":
		return newAzureModels(ctx, config)
	case model.ProviderGemini:
		return newGeminiModels(ctx, config)
	default:
		return nil, fmt.Errorf("unknown model provider %q", config.Backend.Provider)
	}
}

func newAzureModels(ctx context.Context, config ChatModelsConfig) (*ChatModels, error) {
	b := config.Backend
	if b.AzureEndpoint == "" || b.AzureKey == "" {
		return nil, fmt.Errorf("azure provider needs AOAI_ENDPOINT and AOAI_KEY")
	}

	build := func(name string, maxTokens int, temperature float32) (*openai.ChatModel, error) {
		deployment := name
		// A single deployment serves both stages when configured.
		if b.AzureDeployment != "" {
			deployment = b.AzureDeployment
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			ByAzure:     true,
			BaseURL:     b.AzureEndpoint,
			APIKey:      b.AzureKey,
			APIVersion:  b.AzureAPIVersion,
			Model:       deployment,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	}

	intent, err := build(config.IntentCfg.Model, config.IntentCfg.MaxTokens, config.IntentCfg.Temperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}
	response, err := build(config.RespConfig.Model, config.RespConfig.MaxTokens, config.RespConfig.Temperature)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		Intent:            intent,
		Response:          response,
		IntentModelName:   config.IntentCfg.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

func newGeminiModels(ctx context.Context, config ChatModelsConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.Backend.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Backend.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.Backend.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Thinking tokens count against the output budget, which is tiny here.
	noThinking := &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(0))}

	chatModelIntent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.IntentCfg.Model,
		Temperature:    &config.IntentCfg.Temperature,
		MaxTokens:      &config.IntentCfg.MaxTokens,
		ThinkingConfig: noThinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, fmt.Errorf("error creating intent model: %w", err)
	}

	chatModelResponse, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.RespConfig.Model,
		Temperature:    &config.RespConfig.Temperature,
		MaxTokens:      &config.RespConfig.MaxTokens,
		ThinkingConfig: noThinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}

	return &ChatModels{
		Intent:            chatModelIntent,
		Response:          chatModelResponse,
		IntentModelName:   config.IntentCfg.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}
