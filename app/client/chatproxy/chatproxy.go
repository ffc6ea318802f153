package chatproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"wertchat/app/config"
	"wertchat/app/service/conversation"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Client talks to the external chat proxy. The proxy answers either with a
// server-sent-event stream (preferred) or with a single JSON object carrying
// the full reply and pre-extracted recommendations; the capability is
// detected from the response Content-Type.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

type chatRequest struct {
	Messages []conversation.Turn `json:"messages"`
}

type chatReply struct {
	Message         string            `json:"message"`
	Recommendations []json.RawMessage `json:"quoteRecommendations"`
	Error           string            `json:"error"`
}

// Response is either a live SSE body (Stream non-nil, caller must close) or
// the decoded non-streaming reply.
type Response struct {
	Stream io.ReadCloser

	Message         string
	Recommendations []string
}

func NewClient(di *do.Injector) (*Client, error) {
	return &Client{
		cfg: do.MustInvoke[*config.Config](di),

		// no client-level timeout: it would cut streaming bodies short.
		// Cancellation comes from the request context.
		httpClient: &http.Client{},
	}, nil
}

func (c *Client) Send(ctx context.Context, history []conversation.Turn) (*Response, error) {
	body, err := json.Marshal(chatRequest{Messages: history})
	if err != nil {
		return nil, oops.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Upstream.Proxy.URL, bytes.NewReader(body))
	if err != nil {
		return nil, oops.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Upstream.Proxy.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Upstream.Proxy.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Errorf("chat proxy request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		var reply chatReply
		if json.Unmarshal(data, &reply) == nil && reply.Error != "" {
			return nil, oops.With("status", resp.StatusCode).Errorf("chat proxy error: %s", reply.Error)
		}

		return nil, oops.With("status", resp.StatusCode).Errorf("chat proxy returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		return &Response{Stream: resp.Body}, nil
	}

	defer resp.Body.Close()

	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, oops.Errorf("failed to decode chat reply: %w", err)
	}

	recommendations := make([]string, 0, len(reply.Recommendations))
	for _, raw := range reply.Recommendations {
		recommendations = append(recommendations, string(raw))
	}

	return &Response{
		Message:         reply.Message,
		Recommendations: recommendations,
	}, nil
}
