package chat

import (
	"context"

	"wertchat/app/service/quote"
)

type EventKind string

const (
	// EventContent carries a display-text delta, already stripped of markup.
	EventContent EventKind = "content"
	// EventQuote carries a freshly accepted quote item.
	EventQuote EventKind = "quote_item"
	// EventDone terminates the reply.
	EventDone EventKind = "done"
	// EventError carries the generic user-visible failure text.
	EventError EventKind = "error"
)

type Event struct {
	Kind EventKind   `json:"type"`
	Text string      `json:"data,omitempty"`
	Item *quote.Item `json:"item,omitempty"`
}

const eventBufferSize = 64

// emit delivers an event unless the consumer is gone.
func emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
