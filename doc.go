// Package agentloop is a runtime for tool-augmented conversational agents.
//
// Given a user utterance, the runtime drives a bounded reason/act loop
// against a hosted completion service, dispatching tool calls requested by
// the model, and returns or streams the final assistant reply. Conversation
// state is keyed by a thread identifier so callers can resume multi-turn
// dialogues.
//
// The root package holds the shared data model: [Message], [ToolCall],
// [Response], the error taxonomy, and the [ChatProvider] and
// [EmbeddingProvider] interfaces implemented by the backend adapters in
// provider/openai and provider/anthropic.
//
// The moving parts live in subpackages:
//
//   - agent: the reasoning loop and its state machine
//   - gateway: resilient access to the remote service (deployment
//     resolution, retry with backoff, typed error classification)
//   - deployment: logical model name to backend deployment mapping
//   - pool: round-robin client pool
//   - store: thread-scoped conversation history with pluggable persistence
//   - stream: ordered text-fragment delivery for streaming invocations
//   - retry: the generic retry combinator
//   - tool: the tool registry and handler contract
//   - mcp: expose a tool registry as an MCP server
//
// # Basic Usage
//
//	deployments := deployment.Map{
//	    "gpt-4o": {Provider: agentloop.ProviderOpenAI, Name: "gpt-4o"},
//	}
//	gw := gateway.New(gateway.Config{Deployments: deployments})
//	gw.RegisterPool(agentloop.ProviderOpenAI, clients)
//
//	registry := tool.NewRegistry()
//	a := agent.New(gw, store.NewThreadStore(nil), registry, agent.Config{})
//
//	result := a.Invoke(ctx, "", "Hello there")
//	fmt.Println(result.Text)
//
// Invocations never propagate a raw error past the public surface: a failed
// turn yields a natural-language error description as its text, with the
// structured error available on the result for callers that want it.
package agentloop
