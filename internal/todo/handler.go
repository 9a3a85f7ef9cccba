package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"assistbot/internal/domain"
	"assistbot/internal/metrics"
)

// Reply texts. Tests and callers match on these.
const (
	ReplyMissingItem    = "Please specify what to add, e.g. 'add buy milk'."
	ReplyEmptyList      = "Your todo list is empty."
	ReplyInvalidNumber  = "Sorry, that's not a valid number. Send 'list' to see your item numbers."
	ReplyUnknownCommand = "Sorry, I didn't understand that. Try 'add <item>', 'list', or 'remove <number>'."
	ReplyStorageFailure = "Sorry, I couldn't reach your todo list right now. Please try again later."
)

// Handler owns the read-modify-write cycle over a sender's todo list.
type Handler struct {
	store  domain.TodoStore
	logger *slog.Logger
}

type HandlerConfig struct {
	Store  domain.TodoStore
	Logger *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{store: cfg.Store, logger: cfg.Logger}
}

// Handle runs one todo command for senderID and always returns a reply.
// It performs at most one Get and one Put. Concurrent calls for the same
// sender are not coordinated: the last Put wins.
func (h *Handler) Handle(ctx context.Context, senderID, text string) string {
	cmd := Parse(text)

	switch {
	case errors.Is(cmd.Err, ErrMissingItem):
		return ReplyMissingItem
	case errors.Is(cmd.Err, ErrInvalidNumber):
		h.logger.Debug("todo remove rejected", "sender", senderID, "command", cmd.Raw)
		return ReplyInvalidNumber
	case cmd.Kind == KindUnknown:
		return ReplyUnknownCommand
	}

	items, err := h.store.Get(ctx, senderID)
	if err != nil {
		h.reportFailure("todo fetch failed", err, senderID, cmd)
		return ReplyStorageFailure
	}

	switch cmd.Kind {
	case KindList:
		return RenderList(items)

	case KindAdd:
		updated := append(items[:len(items):len(items)], cmd.Item)
		if err := h.store.Put(ctx, senderID, updated); err != nil {
			h.reportFailure("todo store failed", err, senderID, cmd)
			return ReplyStorageFailure
		}
		return fmt.Sprintf("Added '%s' to your todo list.", cmd.Item)

	case KindRemove:
		idx := cmd.Position - 1
		if idx < 0 || idx >= len(items) {
			h.logger.Debug("todo remove out of range", "sender", senderID, "position", cmd.Position, "len", len(items))
			return ReplyInvalidNumber
		}
		removed := items[idx]
		updated := make([]string, 0, len(items)-1)
		updated = append(updated, items[:idx]...)
		updated = append(updated, items[idx+1:]...)
		if err := h.store.Put(ctx, senderID, updated); err != nil {
			h.reportFailure("todo store failed", err, senderID, cmd)
			return ReplyStorageFailure
		}
		return fmt.Sprintf("Removed '%s' from your todo list.", removed)
	}

	return ReplyUnknownCommand
}

func (h *Handler) reportFailure(msg string, err error, senderID string, cmd Command) {
	metrics.CollaboratorErrors("storage").Inc()
	h.logger.Error(msg,
		"err", err,
		"reason", domain.ReasonOf(err),
		"sender", senderID,
		"command", cmd.Raw,
	)
}

// RenderList formats items as a 1-based numbered list, one item per line.
func RenderList(items []string) string {
	if len(items) == 0 {
		return ReplyEmptyList
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}
