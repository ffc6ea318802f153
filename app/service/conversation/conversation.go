package conversation

import (
	"sync"
	"time"
)

// Conversation owns the ordered message log of one visitor session and the
// in-flight assistant reply. At most one assistant message streams at a time.
type Conversation struct {
	mu       sync.RWMutex
	nextID   int64
	messages []*Message
	open     *Message
}

// New creates a conversation, optionally seeded with an assistant greeting.
func New(greeting string) *Conversation {
	c := &Conversation{}

	if greeting != "" {
		c.messages = append(c.messages, &Message{
			ID:        c.allocateID(),
			Text:      greeting,
			Origin:    OriginAssistant,
			CreatedAt: time.Now(),
		})
	}

	return c
}

func (c *Conversation) allocateID() int64 {
	c.nextID++
	return c.nextID
}

// AppendUserMessage adds a finalized user message. Rejected while an
// assistant reply is streaming.
func (c *Conversation) AppendUserMessage(text string) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open != nil {
		return Message{}, ErrBusy
	}

	msg := &Message{
		ID:        c.allocateID(),
		Text:      text,
		Origin:    OriginUser,
		CreatedAt: time.Now(),
	}
	c.messages = append(c.messages, msg)

	return *msg, nil
}

// BeginAssistantMessage opens the streaming placeholder that the extractor
// output lands in, frame by frame.
func (c *Conversation) BeginAssistantMessage() (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open != nil {
		return Message{}, ErrBusy
	}

	msg := &Message{
		ID:        c.allocateID(),
		Origin:    OriginAssistant,
		CreatedAt: time.Now(),
		Streaming: true,
	}
	c.messages = append(c.messages, msg)
	c.open = msg

	return *msg, nil
}

// AppendToAssistantMessage concatenates a display delta onto the open reply.
func (c *Conversation) AppendToAssistantMessage(delta string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return ErrNotStreaming
	}

	c.open.Text += delta

	return nil
}

// SetAssistantText replaces the open reply's text wholesale. Used when the
// display buffer is recomputed rather than appended, and on error replies.
func (c *Conversation) SetAssistantText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return ErrNotStreaming
	}

	c.open.Text = text

	return nil
}

// FinalizeAssistantMessage flips the open reply to final. No further mutation
// is permitted afterwards.
func (c *Conversation) FinalizeAssistantMessage() (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return Message{}, ErrNotStreaming
	}

	c.open.Streaming = false
	msg := *c.open
	c.open = nil

	return msg, nil
}

// FailAssistantMessage finalizes the open reply with replacement error text
// and marks it failed, keeping it out of upstream history.
func (c *Conversation) FailAssistantMessage(text string) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open == nil {
		return Message{}, ErrNotStreaming
	}

	c.open.Text = text
	c.open.Streaming = false
	c.open.Failed = true
	msg := *c.open
	c.open = nil

	return msg, nil
}

// Streaming reports whether an assistant reply is in flight.
func (c *Conversation) Streaming() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.open != nil
}

// Messages returns a snapshot of the log.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Message, 0, len(c.messages))
	for _, msg := range c.messages {
		result = append(result, *msg)
	}

	return result
}

// History returns the last limit finalized messages in upstream wire shape.
// The open streaming placeholder is excluded.
func (c *Conversation) History(limit int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	turns := make([]Turn, 0, len(c.messages))
	for _, msg := range c.messages {
		if msg.Streaming || msg.Failed {
			continue
		}

		role := "user"
		if msg.Origin == OriginAssistant {
			role = "assistant"
		}

		turns = append(turns, Turn{Role: role, Content: msg.Text})
	}

	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	return turns
}
