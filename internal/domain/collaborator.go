package domain

import (
	"context"
	"errors"
	"fmt"
)

// TodoStore persists one ordered todo list per sender.
// Get returns an empty list (and no error) for a sender with no record.
// Put overwrites whatever is stored; there is no version check.
type TodoStore interface {
	Get(ctx context.Context, senderID string) ([]string, error)
	Put(ctx context.Context, senderID string, items []string) error
}

// Label is one detection returned by a Vision collaborator.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // percent, 0-100
}

// Vision labels the contents of an image. Results keep the collaborator's ranking.
type Vision interface {
	Classify(ctx context.Context, image []byte, maxLabels int, minConfidence float64) ([]Label, error)
}

// Prompt is the single-turn envelope sent to a LanguageModel.
type Prompt struct {
	Version   string // protocol tag required by the collaborator, e.g. "bedrock-2023-05-31"
	MaxTokens int
	Question  string
}

// LanguageModel answers a single question with no conversation history.
type LanguageModel interface {
	Name() string
	Ask(ctx context.Context, p Prompt) (string, error)
}

// FailureReason classifies why a collaborator call failed.
type FailureReason string

const (
	ReasonUnavailable FailureReason = "unavailable" // transport error, DNS, connection refused
	ReasonTimeout     FailureReason = "timeout"
	ReasonBadStatus   FailureReason = "bad_status" // non-success status from the remote side
	ReasonMalformed   FailureReason = "malformed"  // response could not be decoded
	ReasonRejected    FailureReason = "rejected"   // service refused the input
	ReasonTooLarge    FailureReason = "too_large"
)

// CollaboratorError is the failure result of every external call.
type CollaboratorError struct {
	Collaborator string // storage | vision | model | download
	Reason       FailureReason
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Collaborator, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Collaborator, e.Reason, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Fail wraps err as a CollaboratorError.
func Fail(collaborator string, reason FailureReason, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Reason: reason, Err: err}
}

// ReasonOf reports the failure reason carried by err, or ReasonUnavailable
// when err is not a CollaboratorError.
func ReasonOf(err error) FailureReason {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ReasonUnavailable
}
