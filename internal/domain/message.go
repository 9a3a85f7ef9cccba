package domain

import "time"

// Intent is the classification outcome for an inbound message.
type Intent string

const (
	IntentImage    Intent = "image"
	IntentTodo     Intent = "todo"
	IntentQuestion Intent = "question"
)

// InboundMessage is the normalized record handed over by the transport layer.
// Only the first attachment is ever looked at; MediaURL holds its location.
type InboundMessage struct {
	SenderID   string    `json:"sender_id"`
	Text       string    `json:"text"`
	MediaCount int       `json:"media_count"`
	MediaURL   string    `json:"media_url,omitempty"`
	Timestamp  time.Time `json:"-"`
}

// Reply is what the assistant hands back to the transport layer.
type Reply struct {
	Text   string `json:"text"`
	Intent Intent `json:"intent"`
}
