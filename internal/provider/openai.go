package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"assistbot/internal/domain"
)

const (
	openAIDefaultBase  = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI implements domain.LanguageModel for OpenAI-compatible chat completion APIs.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

type OpenAIConfig struct {
	APIKey     string
	APIBase    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" && cfg.APIBase != openAIDefaultBase {
		clientConfig.BaseURL = cfg.APIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(0)
	}
	clientConfig.HTTPClient = cfg.HTTPClient

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Ask(ctx context.Context, p domain.Prompt) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: p.Question},
		},
	})
	if err != nil {
		return "", domain.Fail("model", classifyOpenAIError(err), fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", domain.Fail("model", domain.ReasonMalformed, fmt.Errorf("no choices in response"))
	}

	choice := resp.Choices[0]
	o.logger.Debug("openai answer", "model", o.model, "finish_reason", choice.FinishReason, "chars", len(choice.Message.Content))
	return choice.Message.Content, nil
}

func classifyOpenAIError(err error) domain.FailureReason {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusReason(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusReason(reqErr.HTTPStatusCode)
	}
	return netReason(err)
}
