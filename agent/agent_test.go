package agent

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/store"
	"github.com/smartsource/agentloop/tool"
)

// mockResponse scripts one model call.
type mockResponse struct {
	content   string
	deltas    []string
	toolCalls []ai.ToolCall
	err       error
	streamErr error // emitted mid-stream after the deltas
	truncate  bool  // close the stream after the deltas without a final event
}

// mockGateway replays scripted responses. When loop is set the last response
// repeats forever instead of running out.
type mockGateway struct {
	mu        sync.Mutex
	responses []mockResponse
	loop      bool
	calls     int
	messages  [][]ai.Message
}

func (m *mockGateway) next(messages []ai.Message) mockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, messages)
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		if m.loop {
			idx = len(m.responses) - 1
		} else {
			return mockResponse{err: errors.New("mock: out of scripted responses")}
		}
	}
	return m.responses[idx]
}

func (m *mockGateway) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockGateway) Complete(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	r := m.next(messages)
	if r.err != nil {
		return nil, r.err
	}
	return &ai.Response{Content: r.content, ToolCalls: r.toolCalls}, nil
}

func (m *mockGateway) CompleteStream(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := m.next(messages)
	if r.err != nil {
		return nil, r.err
	}

	deltas := r.deltas
	if deltas == nil && r.content != "" {
		deltas = []string{r.content}
	}

	ch := make(chan ai.StreamEvent)
	go func() {
		defer close(ch)
		for _, d := range deltas {
			select {
			case ch <- ai.StreamEvent{Delta: d}:
			case <-ctx.Done():
				return
			}
		}
		if r.truncate {
			return
		}
		if r.streamErr != nil {
			select {
			case ch <- ai.StreamEvent{Err: r.streamErr}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case ch <- ai.StreamEvent{Done: true, Response: &ai.Response{Content: r.content, ToolCalls: r.toolCalls}}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func newTestAgent(gw Gateway, registry *tool.Registry, cfg Config) *Agent {
	return New(gw, store.NewThreadStore(nil), registry, cfg)
}

func calculatorRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	registry := tool.NewRegistry()
	tool.MustRegisterFunc(registry, "calculator", "Evaluate arithmetic",
		func(ctx context.Context, args struct {
			Expression string `json:"expression" required:"true"`
		}) (string, error) {
			switch args.Expression {
			case "2+2":
				return "4", nil
			case "1/0":
				return "", errors.New("division by zero")
			}
			n, err := strconv.Atoi(args.Expression)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(n), nil
		},
	)
	return registry
}

func TestInvokeSimpleReply(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{content: "Hello!"}}}
	a := newTestAgent(gw, nil, Config{})

	result := a.Invoke(context.Background(), "", "Hi")

	require.NoError(t, result.Err)
	assert.NotEmpty(t, result.ThreadID)
	assert.Equal(t, "Hello!", result.Text)
	assert.Equal(t, 0, result.Rounds)

	history, err := a.History(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ai.RoleUser, history[0].Role)
	assert.Equal(t, "Hi", history[0].Content)
	assert.Equal(t, ai.RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello!", history[1].Content)
}

func TestInvokeToolRound(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{toolCalls: []ai.ToolCall{{ID: "call-1", Name: "calculator", Arguments: `{"expression":"2+2"}`}}},
		{content: "The answer is 4."},
	}}
	a := newTestAgent(gw, calculatorRegistry(t), Config{})

	result := a.Invoke(context.Background(), "", "What is 2+2?")

	require.NoError(t, result.Err)
	assert.Equal(t, "The answer is 4.", result.Text)
	assert.Equal(t, 1, result.Rounds)

	history, err := a.History(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	// user, assistant tool call, tool result, final assistant
	assert.Equal(t, ai.RoleUser, history[0].Role)
	assert.Equal(t, ai.RoleAssistant, history[1].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, "calculator", history[1].ToolCalls[0].Name)
	assert.Equal(t, ai.RoleTool, history[2].Role)
	require.Len(t, history[2].ToolResults, 1)
	assert.Equal(t, "call-1", history[2].ToolResults[0].ToolCallID)
	assert.Equal(t, "4", history[2].ToolResults[0].Content)
	assert.False(t, history[2].ToolResults[0].IsError)
	assert.Equal(t, ai.RoleAssistant, history[3].Role)

	// Every model call starts with the system prompt
	require.Len(t, gw.messages, 2)
	assert.Equal(t, ai.RoleSystem, gw.messages[0][0].Role)
	assert.Equal(t, DefaultSystemPrompt, gw.messages[0][0].Content)
	// The second call carries the tool exchange
	assert.Len(t, gw.messages[1], 4)
}

func TestInvokeIterationBound(t *testing.T) {
	gw := &mockGateway{
		responses: []mockResponse{{
			content:   "still working",
			toolCalls: []ai.ToolCall{{ID: "c", Name: "calculator", Arguments: `{"expression":"2+2"}`}},
		}},
		loop: true,
	}
	a := newTestAgent(gw, calculatorRegistry(t), Config{MaxIterations: 2})

	result := a.Invoke(context.Background(), "", "Loop forever")

	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, "still working", result.Text)
	// 2 tool rounds plus the bounded final call
	assert.Equal(t, 3, gw.callCount())
}

func TestInvokeGatewayError(t *testing.T) {
	cause := ai.NewPermanentError("invalid api key", 401, nil)
	gw := &mockGateway{responses: []mockResponse{{err: cause}}}
	a := newTestAgent(gw, nil, Config{})

	result := a.Invoke(context.Background(), "", "Hi")

	require.Error(t, result.Err)
	assert.True(t, ai.IsPermanent(result.Err))
	assert.Contains(t, result.Text, "I encountered an error:")
	assert.Contains(t, result.Text, "invalid api key")

	// The failure is recorded in the thread like any other reply
	history, err := a.History(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ai.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Text, history[1].Content)
}

func TestInvokeUnknownTool(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{toolCalls: []ai.ToolCall{{ID: "c1", Name: "nonexistent", Arguments: `{}`}}},
		{content: "recovered"},
	}}
	a := newTestAgent(gw, calculatorRegistry(t), Config{})

	result := a.Invoke(context.Background(), "", "Use a tool")

	require.NoError(t, result.Err)
	assert.Equal(t, "recovered", result.Text)

	history, err := a.History(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	require.Len(t, history[2].ToolResults, 1)
	assert.True(t, history[2].ToolResults[0].IsError)
	assert.Contains(t, history[2].ToolResults[0].Content, "nonexistent")
}

func TestInvokeFailingToolHandler(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{toolCalls: []ai.ToolCall{{ID: "c1", Name: "calculator", Arguments: `{"expression":"1/0"}`}}},
		{content: "that does not divide"},
	}}
	a := newTestAgent(gw, calculatorRegistry(t), Config{})

	result := a.Invoke(context.Background(), "", "What is 1/0?")

	require.NoError(t, result.Err)
	assert.Equal(t, "that does not divide", result.Text)

	history, err := a.History(context.Background(), result.ThreadID)
	require.NoError(t, err)
	require.Len(t, history[2].ToolResults, 1)
	assert.True(t, history[2].ToolResults[0].IsError)
	assert.Equal(t, "division by zero", history[2].ToolResults[0].Content)
}

func TestInvokeEmptyContentFallback(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{content: ""}}}
	a := newTestAgent(gw, nil, Config{})

	result := a.Invoke(context.Background(), "", "Hi")

	require.NoError(t, result.Err)
	assert.Equal(t, "I'm sorry, I couldn't process your request.", result.Text)
}

func TestInvokeContinuesThread(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{
		{content: "first reply"},
		{content: "second reply"},
	}}
	a := newTestAgent(gw, nil, Config{})

	id, err := a.CreateThread(context.Background())
	require.NoError(t, err)

	first := a.Invoke(context.Background(), id, "one")
	require.NoError(t, first.Err)
	assert.Equal(t, id, first.ThreadID)

	second := a.Invoke(context.Background(), id, "two")
	require.NoError(t, second.Err)

	history, err := a.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "first reply", history[1].Content)
	assert.Equal(t, "two", history[2].Content)
	assert.Equal(t, "second reply", history[3].Content)

	// The second call saw the full prior exchange
	require.Len(t, gw.messages, 2)
	assert.Len(t, gw.messages[1], 4)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 0.7, *cfg.Temperature)
	assert.Equal(t, DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, 10, cfg.MaxIterations)

	custom := Config{Model: "claude", MaxIterations: 3}.withDefaults()
	assert.Equal(t, "claude", custom.Model)
	assert.Equal(t, 3, custom.MaxIterations)
}

func TestChatOptionsIncludeTools(t *testing.T) {
	gw := &mockGateway{responses: []mockResponse{{content: "ok"}}}
	a := newTestAgent(gw, calculatorRegistry(t), Config{})

	opts := ai.ApplyOptions(a.chatOptions()...)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.7, *opts.Temperature)
	require.Len(t, opts.Tools, 1)
	assert.Equal(t, "calculator", opts.Tools[0].Name)

	noTools := newTestAgent(gw, nil, Config{})
	opts = ai.ApplyOptions(noTools.chatOptions()...)
	assert.Empty(t, opts.Tools)
}
