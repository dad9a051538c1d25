package agentloop

import "context"

// Provider identifies an AI provider.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ChatProvider defines the interface for AI chat providers.
type ChatProvider interface {
	// Chat sends messages and returns the complete response.
	// Returns an error if messages is empty.
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error)

	// ChatStream sends messages and streams the response events.
	// The returned channel is closed when the stream completes. The final
	// event has Done set and carries the accumulated Response.
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (<-chan StreamEvent, error)
}
