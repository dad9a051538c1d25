// Package agent drives the reasoning loop for tool-augmented conversations.
//
// An invocation moves through a small state machine: record the user
// message, call the model, dispatch any tool calls the model requested, and
// repeat until the model answers in plain text or the iteration bound is
// reached. A failed invocation never surfaces a raw error to the caller; it
// yields a natural-language description of the failure as the reply text,
// with the structured error available on the Result.
package agent

import (
	"context"
	"fmt"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/store"
	"github.com/smartsource/agentloop/tool"
)

// DefaultSystemPrompt is used when Config.SystemPrompt is empty.
const DefaultSystemPrompt = "You are a helpful assistant. Use the available tools when they help you answer accurately."

// fallbackReply is returned when the model finishes without any content.
const fallbackReply = "I'm sorry, I couldn't process your request."

// Gateway is the completion surface the agent needs. *gateway.Gateway
// satisfies it; tests substitute fakes.
type Gateway interface {
	Complete(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (*ai.Response, error)
	CompleteStream(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error)
}

// Config holds agent configuration. It is fixed at construction; changing
// behavior mid-conversation means building a new agent.
type Config struct {
	// Model is the logical model name sent to the gateway (default: gpt-4o).
	Model string

	// Temperature is the sampling temperature (default: 0.7).
	Temperature *float64

	// SystemPrompt is prepended to every model call (default: DefaultSystemPrompt).
	SystemPrompt string

	// MaxIterations bounds the number of tool rounds per invocation (default: 10).
	MaxIterations int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.Temperature == nil {
		t := 0.7
		c.Temperature = &t
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	return c
}

// Result is the outcome of one invocation.
type Result struct {
	// ThreadID identifies the conversation the invocation ran in.
	ThreadID string

	// Text is the final assistant reply. It is always non-empty; failed
	// invocations carry a description of the failure.
	Text string

	// Rounds is the number of tool dispatch rounds the invocation used.
	Rounds int

	// Err holds the structured error behind a failed invocation, nil on success.
	Err error
}

// Agent runs tool-augmented conversations against a gateway.
type Agent struct {
	gw       Gateway
	threads  *store.ThreadStore
	registry *tool.Registry
	cfg      Config
}

// New creates an agent. A nil registry means the model is called without tools.
func New(gw Gateway, threads *store.ThreadStore, registry *tool.Registry, cfg Config) *Agent {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Agent{
		gw:       gw,
		threads:  threads,
		registry: registry,
		cfg:      cfg.withDefaults(),
	}
}

// CreateThread allocates a new conversation thread.
func (a *Agent) CreateThread(ctx context.Context) (string, error) {
	return a.threads.Create(ctx)
}

// History returns the thread's message history.
func (a *Agent) History(ctx context.Context, threadID string) ([]ai.Message, error) {
	return a.threads.Get(ctx, threadID)
}

// Invoke runs one full turn: record the user text, loop through model calls
// and tool dispatches, and return the final reply. An empty threadID starts
// a new thread. The per-thread lock is held for the whole turn so concurrent
// invocations of the same thread serialize.
func (a *Agent) Invoke(ctx context.Context, threadID, text string) *Result {
	threadID, err := a.ensureThread(ctx, threadID)
	if err != nil {
		return &Result{ThreadID: threadID, Text: failureText(err), Err: err}
	}

	unlock := a.threads.Lock(threadID)
	defer unlock()

	result := &Result{ThreadID: threadID}

	if err := a.threads.Append(ctx, threadID, ai.Message{Role: ai.RoleUser, Content: text}); err != nil {
		return a.fail(ctx, result, err)
	}

	for {
		resp, err := a.step(ctx, threadID)
		if err != nil {
			return a.fail(ctx, result, err)
		}

		if len(resp.ToolCalls) == 0 || result.Rounds >= a.cfg.MaxIterations {
			reply := resp.Content
			if reply == "" {
				reply = fallbackReply
			}
			if err := a.threads.Append(ctx, threadID, ai.Message{Role: ai.RoleAssistant, Content: reply}); err != nil {
				return a.fail(ctx, result, err)
			}
			result.Text = reply
			return result
		}

		if err := a.dispatch(ctx, threadID, resp); err != nil {
			return a.fail(ctx, result, err)
		}
		result.Rounds++
	}
}

// step sends the system prompt plus the full thread history to the gateway.
func (a *Agent) step(ctx context.Context, threadID string) (*ai.Response, error) {
	msgs, err := a.conversation(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return a.gw.Complete(ctx, a.cfg.Model, msgs, a.chatOptions()...)
}

// dispatch records the assistant's tool-call message and executes each call
// in the order it was issued. A missing tool or failing handler becomes an
// error-bearing tool result so the model can recover on the next round.
func (a *Agent) dispatch(ctx context.Context, threadID string, resp *ai.Response) error {
	assistantMsg := ai.Message{
		Role:      ai.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
	if err := a.threads.Append(ctx, threadID, assistantMsg); err != nil {
		return err
	}

	for _, call := range resp.ToolCalls {
		result, err := a.registry.Execute(ctx, call)
		if err != nil {
			result = ai.ToolResult{
				ToolCallID: call.ID,
				Content:    err.Error(),
				IsError:    true,
			}
		}
		if err := a.threads.Append(ctx, threadID, ai.NewToolResultMessage(result)); err != nil {
			return err
		}
	}
	return nil
}

// conversation builds the model-call message list: system prompt first,
// then the thread history in append order.
func (a *Agent) conversation(ctx context.Context, threadID string) ([]ai.Message, error) {
	history, err := a.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	msgs := make([]ai.Message, 0, len(history)+1)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: a.cfg.SystemPrompt})
	msgs = append(msgs, history...)
	return msgs, nil
}

func (a *Agent) chatOptions() []ai.Option {
	opts := []ai.Option{ai.WithTemperature(*a.cfg.Temperature)}
	if a.registry.Len() > 0 {
		opts = append(opts, ai.WithTools(a.registry.Tools()...))
	}
	return opts
}

func (a *Agent) ensureThread(ctx context.Context, threadID string) (string, error) {
	if threadID != "" {
		return threadID, nil
	}
	return a.threads.Create(ctx)
}

// fail records the failure as an assistant message so the thread history
// reflects what the user saw, then returns the described result.
func (a *Agent) fail(ctx context.Context, result *Result, err error) *Result {
	result.Err = err
	result.Text = failureText(err)
	// History append is best effort here; the invocation already failed.
	_ = a.threads.Append(ctx, result.ThreadID, ai.Message{Role: ai.RoleAssistant, Content: result.Text})
	return result
}

func failureText(err error) string {
	return fmt.Sprintf("I encountered an error: %v", err)
}
