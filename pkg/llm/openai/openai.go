// Package openai implements pkg/llm's Chat client for any OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/engram/pkg/llm"
)

// Config holds configuration for the OpenAI-compatible chat client.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string

	// BaseURL overrides the endpoint URL. Empty means api.openai.com.
	BaseURL string

	// Model is the chat model name.
	Model string

	// MaxTokens caps completions. Zero means provider default.
	MaxTokens int
}

// Chat wraps an OpenAI-compatible chat-completions API.
type Chat struct {
	client    *goopenai.Client
	model     string
	maxTokens int
}

// NewChat creates a chat client for the configured endpoint.
func NewChat(cfg Config) *Chat {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Chat{
		client:    goopenai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete performs one chat call.
func (c *Chat) Complete(ctx context.Context, req llm.Request) (*llm.Reply, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: req.System},
			{Role: goopenai.ChatMessageRoleUser, Content: req.User},
		},
		MaxTokens: maxTokens,
	}

	if req.JSONResponse {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	rsp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	if len(rsp.Choices) == 0 {
		return nil, llm.ErrEmptyReply
	}

	return &llm.Reply{
		Content: rsp.Choices[0].Message.Content,
		Usage: llm.Usage{
			PromptTokens:     rsp.Usage.PromptTokens,
			CompletionTokens: rsp.Usage.CompletionTokens,
			TotalTokens:      rsp.Usage.TotalTokens,
		},
	}, nil
}

// Close releases resources held by the client.
func (c *Chat) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ llm.Chat = (*Chat)(nil)
