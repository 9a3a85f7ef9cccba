package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrocktypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"assistbot/internal/domain"
)

const bedrockDefaultModel = "anthropic.claude-3-haiku-20240307-v1:0"

// BedrockAPI is the subset of *bedrockruntime.Client used by Bedrock.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock implements domain.LanguageModel with InvokeModel on an Anthropic
// messages-format model hosted in Amazon Bedrock.
type Bedrock struct {
	client  BedrockAPI
	modelID string
	logger  *slog.Logger
}

type BedrockConfig struct {
	Client  BedrockAPI
	ModelID string
	Logger  *slog.Logger
}

func NewBedrock(cfg BedrockConfig) *Bedrock {
	if cfg.ModelID == "" {
		cfg.ModelID = bedrockDefaultModel
	}
	return &Bedrock{client: cfg.Client, modelID: cfg.ModelID, logger: cfg.Logger}
}

func (b *Bedrock) Name() string { return "bedrock" }

type bedrockRequest struct {
	AnthropicVersion string       `json:"anthropic_version"`
	MaxTokens        int          `json:"max_tokens"`
	Messages         []bedrockMsg `json:"messages"`
}

type bedrockMsg struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockResponse struct {
	Content    []bedrockContent `json:"content"`
	StopReason string           `json:"stop_reason"`
}

func (b *Bedrock) Ask(ctx context.Context, p domain.Prompt) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: p.Version,
		MaxTokens:        p.MaxTokens,
		Messages: []bedrockMsg{{
			Role:    "user",
			Content: []bedrockContent{{Type: "text", Text: p.Question}},
		}},
	})
	if err != nil {
		return "", domain.Fail("model", domain.ReasonMalformed, fmt.Errorf("marshal: %w", err))
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", domain.Fail("model", classifyBedrockError(err), fmt.Errorf("invoke %s: %w", b.modelID, err))
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", domain.Fail("model", domain.ReasonMalformed, fmt.Errorf("decode: %w", err))
	}
	text, ok := firstText(resp.Content)
	if !ok {
		return "", domain.Fail("model", domain.ReasonMalformed, fmt.Errorf("no text content in response"))
	}

	b.logger.Debug("bedrock answer", "model", b.modelID, "stop_reason", resp.StopReason, "chars", len(text))
	return text, nil
}

// firstText returns the first text block; later blocks are ignored.
func firstText(blocks []bedrockContent) (string, bool) {
	for _, c := range blocks {
		if c.Type == "text" {
			return c.Text, true
		}
	}
	return "", false
}

func classifyBedrockError(err error) domain.FailureReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	var (
		modelTimeout *bedrocktypes.ModelTimeoutException
		validation   *bedrocktypes.ValidationException
		denied       *bedrocktypes.AccessDeniedException
		notFound     *bedrocktypes.ResourceNotFoundException
		modelErr     *bedrocktypes.ModelErrorException
	)
	switch {
	case errors.As(err, &modelTimeout):
		return domain.ReasonTimeout
	case errors.As(err, &validation), errors.As(err, &denied), errors.As(err, &notFound):
		return domain.ReasonRejected
	case errors.As(err, &modelErr):
		return domain.ReasonBadStatus
	}
	return domain.ReasonUnavailable
}
