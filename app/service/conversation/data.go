package conversation

import (
	"errors"
	"time"
)

type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

var (
	// ErrBusy rejects a new exchange while an assistant reply is streaming,
	// preserving strict request/response ordering in the log.
	ErrBusy = errors.New("assistant reply already in flight")

	// ErrNotStreaming rejects mutations when no assistant reply is open.
	ErrNotStreaming = errors.New("no assistant reply in flight")
)

// Message is one entry of the conversation log. User messages are immutable
// from creation; an assistant message is mutable only while streaming.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
	Streaming bool      `json:"streaming"`

	// Failed replies show their error text in the log but are excluded from
	// upstream history
	Failed bool `json:"failed,omitempty"`
}

// Turn is the wire shape of a message in upstream requests.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
