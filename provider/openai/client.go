// Package openai adapts the OpenAI SDK to the runtime's provider interfaces.
//
// The client speaks either Azure OpenAI (when an endpoint is configured,
// with the deployment name as the per-request model) or the public OpenAI
// API. SDK errors are classified into the runtime's error taxonomy before
// they leave this package.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	ai "github.com/smartsource/agentloop"
)

// Config holds connection settings for one client.
type Config struct {
	// APIKey authenticates the client (Azure key or OpenAI key).
	APIKey string

	// AzureEndpoint selects Azure OpenAI when non-empty
	// (e.g. "https://myresource.openai.azure.com").
	AzureEndpoint string

	// AzureAPIVersion is the Azure API version (required with AzureEndpoint).
	AzureAPIVersion string
}

// Client wraps the OpenAI SDK to implement ai.ChatProvider and
// ai.EmbeddingProvider.
type Client struct {
	client *openai.Client
}

// New creates a client. An Azure endpoint routes requests to Azure OpenAI;
// without one, the public OpenAI API is used with the same key.
func New(cfg Config) *Client {
	var opts []option.RequestOption
	if cfg.AzureEndpoint != "" {
		opts = append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, cfg.AzureAPIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(opts...)
	return &Client{client: &client}
}

// Chat sends a conversation and returns a complete response.
func (c *Client) Chat(ctx context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	if len(messages) == 0 {
		return nil, ai.ErrEmptyInput
	}

	params := buildParams(messages, ai.ApplyOptions(opts...))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	return &ai.Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
		ToolCalls: extractToolCalls(resp.Choices[0].Message),
	}, nil
}

// ChatStream sends a conversation and returns a channel of streaming events.
func (c *Client) ChatStream(ctx context.Context, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	if len(messages) == 0 {
		return nil, ai.ErrEmptyInput
	}

	params := buildParams(messages, ai.ApplyOptions(opts...))
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	ch := make(chan ai.StreamEvent)

	go func() {
		defer close(ch)
		var acc openai.ChatCompletionAccumulator

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !send(ctx, ch, ai.StreamEvent{Delta: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(ctx, ch, ai.StreamEvent{Err: wrapError(err)})
			return
		}

		// Send final event with complete response
		completion := acc.Choices[0]
		send(ctx, ch, ai.StreamEvent{
			Done: true,
			Response: &ai.Response{
				Content:      completion.Message.Content,
				FinishReason: string(completion.FinishReason),
				Usage: ai.Usage{
					InputTokens:  int(acc.Usage.PromptTokens),
					OutputTokens: int(acc.Usage.CompletionTokens),
				},
				ToolCalls: extractToolCalls(completion.Message),
			},
		})
	}()

	return ch, nil
}

// send delivers a stream event unless the context is cancelled first, so
// the producing goroutine never blocks on an abandoned consumer.
func send(ctx context.Context, ch chan<- ai.StreamEvent, ev ai.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func buildParams(messages []ai.Message, options *ai.Options) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    options.Model,
		Messages: convertMessages(messages),
	}
	if options.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(options.MaxTokens))
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if len(options.Tools) > 0 {
		params.Tools = convertTools(options.Tools)
		if options.ToolChoice != "" {
			params.ToolChoice = convertToolChoice(options.ToolChoice)
		}
	}
	return params
}

var _ ai.ChatProvider = (*Client)(nil)
var _ ai.EmbeddingProvider = (*Client)(nil)
