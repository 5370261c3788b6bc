// Package openai provides a client for OpenAI-compatible chat endpoints.
// Groq and DeepSeek are reached by changing the base URL.
package openai

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

const (
	// BackendName is the name used in perspective routing and breaker names
	BackendName = "openai"

	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 1024
)

var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// Client implements interfaces.LLMBackend over an eino chat model
type Client struct {
	chat      model.BaseChatModel
	model     string
	maxTokens int
	logger    *common.Logger
}

// Config holds the endpoint settings
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewClient creates a chat model for the configured endpoint
func NewClient(ctx context.Context, cfg Config, logger *common.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	maxTokens := cfg.MaxTokens
	chat, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Client{chat: chat, model: cfg.Model, maxTokens: cfg.MaxTokens, logger: logger}, nil
}

// Name returns the backend name
func (c *Client) Name() string { return BackendName }

// Complete generates text for one prompt
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	var opts []model.Option
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}

	c.logger.Debug().Str("model", c.model).Str("kind", req.Kind).Msg("Chat completion")

	resp, err := c.chat.Generate(ctx, messages, opts...)
	if err != nil {
		return "", classify(fmt.Errorf("chat completion failed: %w", err))
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", common.NewTransientError(BackendName, fmt.Errorf("empty completion"))
	}
	return resp.Content, nil
}

// classify reads the HTTP status from the wrapped client error message.
func classify(err error) error {
	status := 0
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ = strconv.Atoi(m[1])
	}
	return common.ClassifyStatus(BackendName, status, err)
}
