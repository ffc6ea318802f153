package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	dataMarker   = "data:"
	doneSentinel = "[DONE]"

	maxLineSize = 1 << 20
)

// ErrTruncated is returned when the stream ends without a [DONE] sentinel.
var ErrTruncated = errors.New("stream ended before [DONE]")

var errLineTooLong = errors.New("line too long")

// Decoder turns a raw server-sent-event body into typed frames. Lines without
// the data marker are ignored, malformed JSON payloads and oversized lines are
// skipped so a single corrupted frame never kills the rest of the conversation.
type Decoder struct {
	reader *bufio.Reader
	done   bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next frame. After a FrameDone it returns io.EOF.
func (d *Decoder) Next() (Frame, error) {
	if d.done {
		return Frame{}, io.EOF
	}

	for {
		line, err := d.readLine()
		if errors.Is(err, errLineTooLong) {
			slog.Debug("Skipping oversized stream line")
			continue
		}
		if errors.Is(err, io.EOF) {
			return Frame{}, ErrTruncated
		}
		if err != nil {
			return Frame{}, fmt.Errorf("stream read: %w", err)
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, dataMarker) {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, dataMarker))
		if payload == doneSentinel {
			d.done = true
			return Frame{Kind: FrameDone}, nil
		}

		var env frameEnvelope
		if err := json.Unmarshal([]byte(payload), &env); err != nil {
			slog.Debug("Skipping malformed stream line", "error", err)
			continue
		}

		switch FrameKind(env.Type) {
		case FrameContent:
			var text string
			if err := json.Unmarshal(env.Data, &text); err != nil {
				slog.Debug("Skipping content frame with non-string data", "error", err)
				continue
			}

			return Frame{Kind: FrameContent, Text: text}, nil

		case FrameQuote:
			if len(env.Data) == 0 {
				slog.Debug("Skipping quote frame without data")
				continue
			}

			return Frame{Kind: FrameQuote, Payload: string(env.Data)}, nil

		default:
			slog.Debug("Ignoring unknown frame type", "type", env.Type)
		}
	}
}

// readLine assembles one full line, consuming lines beyond maxLineSize
// without buffering them and reporting errLineTooLong instead.
func (d *Decoder) readLine() (string, error) {
	var buf []byte
	tooLong := false

	for {
		part, isPrefix, err := d.reader.ReadLine()
		if err != nil {
			return "", err
		}

		if !tooLong {
			buf = append(buf, part...)
			if len(buf) > maxLineSize {
				tooLong = true
				buf = nil
			}
		}

		if !isPrefix {
			if tooLong {
				return "", errLineTooLong
			}

			return string(buf), nil
		}
	}
}
