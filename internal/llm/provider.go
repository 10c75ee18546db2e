// Package llm holds the language-model provider clients and the router
// that decides which provider answers a conversational message.
package llm

import "context"

// Provider names used by the router and usage log.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// Options tunes a single request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Usage is the provider-reported token accounting.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Reply is a provider's answer.
type Reply struct {
	Text  string
	Usage Usage
}

// Provider is a generic request/response text service. Each provider is
// configured with its own credential; Configured reports whether that
// credential is present.
type Provider interface {
	Name() string
	Model() string
	Configured() bool
	Send(ctx context.Context, messages []Message, opts Options) (Reply, error)
}
