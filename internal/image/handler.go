// Package image answers MMS messages by describing the attached picture.
package image

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"assistbot/internal/domain"
	"assistbot/internal/metrics"
)

const (
	DefaultMaxLabels     = 10
	DefaultMinConfidence = 75.0
)

const (
	ReplyIntro           = "Here's what I see in your image:"
	ReplyNothingDetected = "I couldn't identify anything in that image."
	ReplyDownloadFailure = "Sorry, I couldn't download your image. Please try sending it again."
	ReplyVisionFailure   = "Sorry, I had trouble analyzing your image. Please try again later."
)

// Handler downloads an image and describes it with a Vision collaborator.
type Handler struct {
	fetcher       Fetcher
	vision        domain.Vision
	maxLabels     int
	minConfidence float64
	logger        *slog.Logger
}

type HandlerConfig struct {
	Fetcher       Fetcher
	Vision        domain.Vision
	MaxLabels     int
	MinConfidence float64
	Logger        *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxLabels <= 0 {
		cfg.MaxLabels = DefaultMaxLabels
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &Handler{
		fetcher:       cfg.Fetcher,
		vision:        cfg.Vision,
		maxLabels:     cfg.MaxLabels,
		minConfidence: cfg.MinConfidence,
		logger:        cfg.Logger,
	}
}

// Handle always returns a reply. A failed download never reaches the Vision collaborator.
func (h *Handler) Handle(ctx context.Context, senderID, imageURL string) string {
	data, err := h.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		metrics.CollaboratorErrors("download").Inc()
		h.logger.Error("image download failed",
			"err", err,
			"reason", domain.ReasonOf(err),
			"sender", senderID,
			"url", imageURL,
		)
		return ReplyDownloadFailure
	}

	labels, err := h.vision.Classify(ctx, data, h.maxLabels, h.minConfidence)
	if err != nil {
		metrics.CollaboratorErrors("vision").Inc()
		var ce *domain.CollaboratorError
		if !errors.As(err, &ce) {
			ce = &domain.CollaboratorError{Collaborator: "vision", Reason: domain.ReasonUnavailable, Err: err}
		}
		h.logger.Error("image classification failed",
			"err", ce.Err,
			"reason", ce.Reason,
			"sender", senderID,
			"bytes", len(data),
		)
		return ReplyVisionFailure
	}

	return RenderLabels(labels)
}

// RenderLabels formats labels one per line as "<name> (<confidence>%)",
// keeping the collaborator's order.
func RenderLabels(labels []domain.Label) string {
	if len(labels) == 0 {
		return ReplyNothingDetected
	}
	var sb strings.Builder
	sb.WriteString(ReplyIntro)
	for _, l := range labels {
		fmt.Fprintf(&sb, "\n%s (%.1f%%)", l.Name, l.Confidence)
	}
	return sb.String()
}
