package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"wertchat/app/client/chatproxy"
	"wertchat/app/client/llm"
	"wertchat/app/config"
	"wertchat/app/service/conversation"
	"wertchat/app/service/markup"
	"wertchat/app/service/quote"
	"wertchat/app/service/ratelimit"
	"wertchat/app/service/stream"
	"wertchat/app/util/sanitize"

	"github.com/samber/do"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrRateLimited  = errors.New("rate limited")
)

// User-visible texts. The product speaks German.
const (
	GreetingText = "Hallo! Ich bin Ihr KI-Berater von Digitalwert. Wie kann ich Ihnen bei Ihrem digitalen Projekt helfen?"

	TechErrorText = "Entschuldigung, es gab einen technischen Fehler. Bitte versuchen Sie es erneut."

	RateLimitText = "Sie senden zu viele Nachrichten. Bitte warten Sie einen Moment, bevor Sie fortfahren."
)

// Session bundles everything that lives for one visitor: the conversation
// log, the rate limiter and the accumulated quote items.
type Session struct {
	// admit serializes the busy check, rate admission and message append of
	// concurrent sends, so a rejected send never leaves an orphan user
	// message or burns a rate-limit slot
	admit sync.Mutex

	conv    *conversation.Conversation
	limiter *ratelimit.Limiter
	quotes  *quote.Accumulator
}

func (s *Session) Messages() []conversation.Message {
	return s.conv.Messages()
}

func (s *Session) Quotes() *quote.Accumulator {
	return s.quotes
}

func (s *Session) Streaming() bool {
	return s.conv.Streaming()
}

// Service drives the reply pipeline: sanitize, admit, record, call upstream,
// strip markup, normalize recommendations and fan results out as events.
type Service struct {
	cfg        *config.Config
	proxy      *chatproxy.Client
	llm        *llm.Client
	normalizer *quote.Normalizer

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	result := &Service{
		cfg:        cfg,
		normalizer: quote.NewNormalizer(cfg.Pricing.HourlyRate),
		sessions:   make(map[string]*Session),
	}

	switch cfg.Upstream.Mode {
	case "direct":
		result.llm = do.MustInvoke[*llm.Client](di)
	default:
		result.proxy = do.MustInvoke[*chatproxy.Client](di)
	}

	return result, nil
}

// Session returns the session for the given id, creating it on first use.
func (s *Service) Session(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{
			conv:    conversation.New(GreetingText),
			limiter: ratelimit.New(time.Duration(s.cfg.Chat.RateWindowSeconds)*time.Second, s.cfg.Chat.RateMaxMessages),
			quotes:  quote.NewAccumulator(),
		}
		s.sessions[id] = sess
	}

	return sess
}

// Send runs one user message through the pipeline. The returned channel
// carries display deltas and accepted quote items and is closed when the
// reply is finalized.
func (s *Service) Send(ctx context.Context, sessionID string, raw string) (<-chan Event, error) {
	text := sanitize.Sanitize(raw)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	sess := s.Session(sessionID)

	sess.admit.Lock()
	defer sess.admit.Unlock()

	if sess.conv.Streaming() {
		return nil, conversation.ErrBusy
	}

	if !sess.limiter.TryAdmit() {
		return nil, ErrRateLimited
	}

	if _, err := sess.conv.AppendUserMessage(text); err != nil {
		return nil, err
	}

	history := sess.conv.History(s.cfg.Chat.HistoryLimit)

	if _, err := sess.conv.BeginAssistantMessage(); err != nil {
		return nil, err
	}

	events := make(chan Event, eventBufferSize)
	go s.run(ctx, sess, history, events)

	return events, nil
}

func (s *Service) run(ctx context.Context, sess *Session, history []conversation.Turn, events chan Event) {
	defer close(events)

	err := s.streamReply(ctx, sess, history, events)

	switch {
	case err == nil:
		if _, err := sess.conv.FinalizeAssistantMessage(); err != nil {
			slog.Error("Failed to finalize assistant message", "error", err)
		}

		emit(ctx, events, Event{Kind: EventDone})

	case errors.Is(err, context.Canceled):
		// client went away mid-reply, keep whatever arrived
		_, _ = sess.conv.FinalizeAssistantMessage()

	default:
		slog.Error("Assistant reply failed", "error", err)

		_, _ = sess.conv.FailAssistantMessage(TechErrorText)

		emit(ctx, events, Event{Kind: EventError, Text: TechErrorText})
	}
}

func (s *Service) streamReply(ctx context.Context, sess *Session, history []conversation.Turn, events chan<- Event) error {
	reply := &replyStream{
		svc:       s,
		sess:      sess,
		extractor: markup.NewExtractor(),
		events:    events,
	}

	if s.llm != nil {
		err := s.llm.Stream(ctx, history, func(chunk string) error {
			return reply.feed(ctx, chunk)
		})
		if err != nil {
			return fmt.Errorf("direct upstream: %w", err)
		}

		return reply.finish(ctx)
	}

	resp, err := s.proxy.Send(ctx, history)
	if err != nil {
		return fmt.Errorf("proxy upstream: %w", err)
	}

	if resp.Stream != nil {
		if err := s.pumpStream(ctx, reply, resp.Stream); err != nil {
			return err
		}

		return reply.finish(ctx)
	}

	// non-streaming proxy reply: one message, recommendations pre-extracted
	if err := reply.feed(ctx, resp.Message); err != nil {
		return err
	}

	for _, payload := range resp.Recommendations {
		reply.quote(ctx, payload)
	}

	return reply.finish(ctx)
}

func (s *Service) pumpStream(ctx context.Context, reply *replyStream, body io.ReadCloser) error {
	defer body.Close()

	decoder := stream.NewDecoder(body)

	for {
		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, stream.ErrTruncated) {
			// keep the partial reply, the text already shown stays valid
			slog.Warn("Upstream stream ended without done sentinel")
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode stream: %w", err)
		}

		switch frame.Kind {
		case stream.FrameContent:
			if err := reply.feed(ctx, frame.Text); err != nil {
				return err
			}

		case stream.FrameQuote:
			reply.quote(ctx, frame.Payload)

		case stream.FrameDone:
			return nil
		}
	}
}

// Shutdown stops the per-session unblock timers.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		_ = sess.limiter.Close()
	}

	return nil
}

// replyStream tracks one in-flight assistant reply: what has been shown so
// far and which recommendations were already accepted.
type replyStream struct {
	svc       *Service
	sess      *Session
	extractor *markup.Extractor
	events    chan<- Event

	shown string
}

func (r *replyStream) feed(ctx context.Context, chunk string) error {
	return r.apply(ctx, r.extractor.Feed(chunk))
}

func (r *replyStream) finish(ctx context.Context) error {
	return r.apply(ctx, r.extractor.Finish())
}

func (r *replyStream) apply(ctx context.Context, upd markup.Update) error {
	if upd.Display != r.shown {
		if delta, ok := strings.CutPrefix(upd.Display, r.shown); ok {
			if err := r.sess.conv.AppendToAssistantMessage(delta); err != nil {
				return err
			}

			emit(ctx, r.events, Event{Kind: EventContent, Text: delta})
		} else {
			// display is prefix-stable, the replace path is a safety net
			if err := r.sess.conv.SetAssistantText(upd.Display); err != nil {
				return err
			}
		}

		r.shown = upd.Display
	}

	for _, payload := range upd.Payloads {
		r.quote(ctx, payload)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	return nil
}

func (r *replyStream) quote(ctx context.Context, payload string) {
	item, err := r.svc.normalizer.Normalize(payload)
	if err != nil {
		slog.Warn("Dropping invalid quote recommendation", "error", err)
		return
	}

	r.sess.quotes.Add(item)

	emit(ctx, r.events, Event{Kind: EventQuote, Item: &item})
}
