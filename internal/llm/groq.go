package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/redbco/askdata/pkg/logger"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "meta-llama/llama-4-scout-17b-16e-instruct"
)

// ChatClient captures the subset of the go-openai client used by the
// fallback tier.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// GroqConfig holds configuration options for the fallback tier.
type GroqConfig struct {
	// APIKey authenticates against the Groq API. An empty key leaves the
	// tier unavailable.
	APIKey string

	// Model overrides the default chat model.
	Model string

	// RequestTimeout bounds a completion call (default: 60s)
	RequestTimeout time.Duration
}

// GroqClient is the fallback generation tier: a hosted chat-completion API
// reached through its OpenAI-compatible surface.
type GroqClient struct {
	chat    ChatClient
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// NewGroqClient creates a fallback-tier client. With an empty API key the
// client stays constructed but reports unavailable.
func NewGroqClient(cfg *GroqConfig, log *logger.Logger) *GroqClient {
	if cfg == nil {
		cfg = &GroqConfig{}
	}
	model := cfg.Model
	if model == "" {
		model = groqDefaultModel
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	var chat ChatClient
	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = groqBaseURL
		chat = openai.NewClientWithConfig(clientConfig)
	}

	return &GroqClient{chat: chat, model: model, timeout: timeout, logger: log}
}

// NewGroqClientWithChat builds a fallback tier over an existing chat client.
// Used by tests to substitute the transport.
func NewGroqClientWithChat(chat ChatClient, log *logger.Logger) *GroqClient {
	return &GroqClient{chat: chat, model: groqDefaultModel, timeout: 60 * time.Second, logger: log}
}

// Name identifies the tier in outcomes.
func (c *GroqClient) Name() string { return "groq" }

// Available reports whether the tier is configured with credentials.
func (c *GroqClient) Available() bool { return c.chat != nil }

// Generate produces a query through a single chat completion. API errors
// resolve to ok=false rather than propagating.
func (c *GroqClient) Generate(ctx context.Context, genReq Request) (string, bool) {
	if c.chat == nil {
		if c.logger != nil {
			c.logger.Error("groq API key not configured")
		}
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPromptFor(genReq.Paradigm)},
			{Role: openai.ChatMessageRoleUser, Content: UserMessageFor(genReq)},
		},
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   1024,
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Error("groq request failed: %v", err)
		}
		return "", false
	}

	if len(resp.Choices) == 0 {
		return "", false
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	return out, out != ""
}
