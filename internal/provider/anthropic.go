package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"assistbot/internal/domain"
)

const (
	anthropicDefaultBase  = "https://api.anthropic.com"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
)

// Anthropic implements domain.LanguageModel against the Anthropic Messages API.
// The envelope version is carried by the SDK's own header, so Prompt.Version is unused.
type Anthropic struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

type AnthropicConfig struct {
	APIKey     string
	APIBase    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	if cfg.APIBase == "" {
		cfg.APIBase = anthropicDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = anthropicDefaultModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(0)
	}
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.APIBase),
		option.WithHTTPClient(cfg.HTTPClient),
		option.WithMaxRetries(0),
	)
	return &Anthropic{client: client, model: cfg.Model, logger: cfg.Logger}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Ask(ctx context.Context, p domain.Prompt) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(p.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.Question)),
		},
	})
	if err != nil {
		return "", domain.Fail("model", classifyAnthropicError(err), fmt.Errorf("anthropic messages: %w", err))
	}

	var text string
	found := false
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.AsText().Text
			found = true
			break
		}
	}
	if !found {
		return "", domain.Fail("model", domain.ReasonMalformed, fmt.Errorf("no text content in response"))
	}

	a.logger.Debug("anthropic answer", "model", a.model, "stop_reason", resp.StopReason, "chars", len(text))
	return text, nil
}

func classifyAnthropicError(err error) domain.FailureReason {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusReason(apiErr.StatusCode)
	}
	return netReason(err)
}

// statusReason maps an HTTP status from a model API onto a failure reason.
func statusReason(code int) domain.FailureReason {
	switch {
	case code == http.StatusRequestEntityTooLarge:
		return domain.ReasonTooLarge
	case code == http.StatusTooManyRequests, code >= 500:
		return domain.ReasonBadStatus
	case code >= 400:
		return domain.ReasonRejected
	}
	return domain.ReasonBadStatus
}

func netReason(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ReasonTimeout
	}
	return domain.ReasonUnavailable
}
