// Package assistant routes each inbound message to exactly one handler.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"assistbot/internal/domain"
	"assistbot/internal/metrics"
)

// Handler produces a reply for one sender. Implementations never fail:
// collaborator errors are turned into apology text.
type Handler interface {
	Handle(ctx context.Context, senderID, payload string) string
}

// Assistant dispatches messages to the todo, image and question handlers.
type Assistant struct {
	todo     Handler
	image    Handler
	question Handler
	logger   *slog.Logger
}

type Config struct {
	Todo     Handler
	Image    Handler
	Question Handler
	Logger   *slog.Logger
}

func New(cfg Config) *Assistant {
	return &Assistant{
		todo:     cfg.Todo,
		image:    cfg.Image,
		question: cfg.Question,
		logger:   cfg.Logger,
	}
}

// Handle classifies msg, runs the matching handler synchronously and returns its reply.
func (a *Assistant) Handle(ctx context.Context, msg domain.InboundMessage) domain.Reply {
	start := time.Now()
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	intent, payload := Classify(msg)

	var text string
	switch intent {
	case domain.IntentImage:
		text = a.image.Handle(ctx, msg.SenderID, payload)
	case domain.IntentTodo:
		text = a.todo.Handle(ctx, msg.SenderID, payload)
	default:
		text = a.question.Handle(ctx, msg.SenderID, payload)
	}

	elapsed := time.Since(start)
	metrics.MessagesTotal(string(intent)).Inc()
	metrics.HandleLatency.Observe(elapsed.Seconds())
	a.logger.Info("message handled",
		"sender", msg.SenderID,
		"intent", intent,
		"media", msg.MediaCount,
		"duration", elapsed.Round(time.Millisecond),
	)

	return domain.Reply{Text: text, Intent: intent}
}
