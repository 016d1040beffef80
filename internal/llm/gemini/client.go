// Package gemini adapts the Google GenAI SDK to llm.Completer.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"smartcv-backend/internal/llm"
	"smartcv-backend/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

// Config configures the Gemini client. BaseURL is only set in tests.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client implements llm.Completer on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient builds a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Name implements llm.Completer.
func (c *Client) Name() string { return "Gemini" }

// Complete generates a JSON reply for req.
func (c *Client) Complete(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), config)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, llm.ErrEmptyResponse
	}

	fields := map[string]any{"model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.usage", fields)
	return json.RawMessage(text), nil
}

var _ llm.Completer = (*Client)(nil)
