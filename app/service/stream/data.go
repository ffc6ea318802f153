package stream

import "encoding/json"

type FrameKind string

const (
	// FrameContent carries an incremental text fragment, possibly empty or
	// mid-word.
	FrameContent FrameKind = "content"
	// FrameQuote carries a complete quote recommendation payload, already
	// extracted by the upstream.
	FrameQuote FrameKind = "quote_recommendation"
	// FrameDone terminates the stream.
	FrameDone FrameKind = "done"
)

type Frame struct {
	Kind    FrameKind
	Text    string
	Payload string
}

type frameEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
