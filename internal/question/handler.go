// Package question answers free-form questions with a hosted language model.
package question

import (
	"context"
	"log/slog"

	"assistbot/internal/domain"
	"assistbot/internal/metrics"
)

const (
	DefaultProtocolVersion = "bedrock-2023-05-31"
	DefaultMaxTokens       = 1024
)

const ReplyModelFailure = "Sorry, I couldn't come up with an answer right now. Please try again later."

// Handler forwards a single question to a LanguageModel. There is no
// conversation history: every question stands alone.
type Handler struct {
	model     domain.LanguageModel
	version   string
	maxTokens int
	logger    *slog.Logger
}

type HandlerConfig struct {
	Model           domain.LanguageModel
	ProtocolVersion string
	MaxTokens       int
	Logger          *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Handler{
		model:     cfg.Model,
		version:   cfg.ProtocolVersion,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// Prompt builds the single-turn envelope for question.
func (h *Handler) Prompt(question string) domain.Prompt {
	return domain.Prompt{
		Version:   h.version,
		MaxTokens: h.maxTokens,
		Question:  question,
	}
}

// Handle returns the model's answer verbatim, or a fixed apology.
func (h *Handler) Handle(ctx context.Context, senderID, question string) string {
	answer, err := h.model.Ask(ctx, h.Prompt(question))
	if err != nil {
		metrics.CollaboratorErrors("model").Inc()
		h.logger.Error("question answering failed",
			"err", err,
			"reason", domain.ReasonOf(err),
			"provider", h.model.Name(),
			"sender", senderID,
			"question_len", len(question),
		)
		return ReplyModelFailure
	}
	return answer
}
