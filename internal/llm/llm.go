package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Defaults for completion requests.
const (
	DefaultTemperature      float32 = 0.7
	DefaultRewriteMaxTokens         = 4000
)

// Request is a single system+user prompt expecting a JSON object reply.
type Request struct {
	System      string
	User        string
	Temperature float32
	// MaxTokens of zero leaves the provider default in place.
	MaxTokens int
}

// Completer is implemented by each LLM provider.
type Completer interface {
	// Name is used as the error prefix, e.g. "OpenAI".
	Name() string
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// ErrEmptyResponse is returned by providers when the model replied with no content.
var ErrEmptyResponse = errors.New("empty response from model")
