// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/stance/internal/common"
	"github.com/bobmcallan/stance/internal/models"
)

const (
	// BackendName is the name used in perspective routing and breaker names
	BackendName = "gemini"

	DefaultModel = "gemini-2.5-flash"
)

// Client implements interfaces.LLMBackend over the Gemini API
type Client struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name returns the backend name
func (c *Client) Name() string { return BackendName }

// Complete generates text for one prompt
func (c *Client) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	c.logger.Debug().Str("model", c.model).Str("kind", req.Kind).Msg("Generating content")

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", classify(fmt.Errorf("gemini %s: %w", c.model, err))
	}

	text, err := responseText(result)
	if err != nil {
		return "", common.NewTransientError(BackendName, err)
	}
	return text, nil
}

var errEmptyResponse = errors.New("gemini returned no text")

// responseText joins the text parts of the first candidate. A candidate
// stopped by the safety filter is reported as such rather than as empty.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("gemini blocked the response: %s", cand.FinishReason)
	}
	if cand.Content == nil {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return common.ClassifyStatus(BackendName, apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return common.ClassifyStatus(BackendName, apiErrPtr.Code, err)
	}
	return common.NewTransientError(BackendName, err)
}
