// Package tool manages the tools an agent can call.
//
// Tools are registered with a name, a description, a JSON Schema for their
// arguments, and a handler. The registry is assembled before an agent is
// constructed and treated as immutable afterward; the agent passes the
// registered tool definitions to the model and dispatches the model's tool
// calls through Execute.
package tool

import (
	"context"

	ai "github.com/smartsource/agentloop"
)

// Handler is a function that executes a tool call and returns a result.
// The context supports cancellation and timeout.
// The call contains the tool name, ID, and arguments as a JSON string.
// Returns the result content string, or an error if execution failed.
type Handler func(ctx context.Context, call ai.ToolCall) (string, error)

// TypedHandler is a function that executes a tool call with typed arguments.
// The args parameter is automatically unmarshaled from the tool call's JSON arguments.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)
