package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// Config configures the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Completer using OpenAI Chat Completions.
type Client struct {
	model string
	http  *resty.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	http := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Client{model: cfg.Model, http: http}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	MaxCompletion  int            `json:"max_completion_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Name implements llm.Completer.
func (c *Client) Name() string { return "OpenAI" }

// Complete sends one chat completion in JSON mode and returns the message content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
	// gpt-5 models only accept the default temperature and the newer token field.
	if isGPT5(c.model) {
		body.MaxCompletion = req.MaxTokens
	} else {
		body.MaxTokens = req.MaxTokens
		if req.Temperature > 0 {
			temp := req.Temperature
			body.Temperature = &temp
		}
	}

	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, err
	}

	raw := resp.Body()
	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return nil, fmt.Errorf("%s (%s)", msg.String(), gjson.GetBytes(raw, "error.type").String())
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("response parse: invalid JSON body")
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return nil, fmt.Errorf("response missing choices")
	}
	text := strings.TrimSpace(content.String())
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	logUsage(c.model, raw)
	return json.RawMessage(text), nil
}

func logUsage(model string, raw []byte) {
	usage := gjson.GetBytes(raw, "usage")
	fields := map[string]any{"model": model}
	if usage.Exists() {
		fields["prompt_tokens"] = usage.Get("prompt_tokens").Int()
		fields["completion_tokens"] = usage.Get("completion_tokens").Int()
		fields["total_tokens"] = usage.Get("total_tokens").Int()
	}
	if fr := gjson.GetBytes(raw, "choices.0.finish_reason"); fr.Exists() {
		fields["finish_reason"] = fr.String()
	}
	telemetry.Info("llm.usage", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Completer = (*Client)(nil)
