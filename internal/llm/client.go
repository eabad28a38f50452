// Package llm talks to the hosted models behind the assistant's SMS and chat
// replies and its sentiment labels.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model answered with no text.
var ErrEmptyCompletion = errors.New("empty completion")

const defaultMaxTokens = 256

// Prompt is a single-turn request.
type Prompt struct {
	Text        string
	MaxTokens   int
	Temperature float64
}

// Completion is the model's answer and its token usage.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// Client is implemented by each provider.
type Client interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
	Name() string
}

// Provider names a hosted model vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Options selects a provider by whichever API key is present.
type Options struct {
	AnthropicKey string
	OpenAIKey    string
	// Model overrides the provider's default model.
	Model string
}

// New returns a client for the configured provider, preferring Anthropic
// when both keys are set. It returns nil when no key is configured; callers
// fall back to canned replies.
func New(opts Options) Client {
	switch {
	case opts.AnthropicKey != "":
		return newAnthropicClient(opts.AnthropicKey, opts.Model)
	case opts.OpenAIKey != "":
		return newOpenAIClient(opts.OpenAIKey, opts.Model)
	default:
		return nil
	}
}

func (p Prompt) maxTokens() int {
	if p.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return p.MaxTokens
}
