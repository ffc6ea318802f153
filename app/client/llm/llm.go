package llm

import (
	"context"

	"wertchat/app/config"
	"wertchat/app/service/conversation"

	_ "embed"

	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

//go:embed system_prompt.txt
var systemPrompt string

const (
	defaultTemperature = 0.7
	maxReplyTokens     = 1000
)

// Client is the direct upstream mode: it talks to an OpenAI-compatible model
// itself, so the raw reply still contains inline quote markup and extraction
// happens locally.
type Client struct {
	model *openai.LLM
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	model, err := openai.New(
		openai.WithBaseURL(cfg.Upstream.OpenAI.BaseURL),
		openai.WithToken(cfg.Upstream.OpenAI.Token),
		openai.WithModel(cfg.Upstream.OpenAI.Model),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create openai client: %w", err)
	}

	return &Client{model: model}, nil
}

// Stream generates the assistant reply, invoking onChunk for every raw text
// fragment as it arrives.
func (c *Client) Stream(ctx context.Context, history []conversation.Turn, onChunk func(string) error) error {
	content := make([]llms.MessageContent, 0, len(history)+1)
	content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))

	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}

		content = append(content, llms.TextParts(role, turn.Content))
	}

	_, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(defaultTemperature),
		llms.WithMaxTokens(maxReplyTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			return onChunk(string(chunk))
		}),
	)
	if err != nil {
		return oops.Errorf("chat completion failed: %w", err)
	}

	return nil
}
