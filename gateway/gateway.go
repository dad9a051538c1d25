// Package gateway provides resilient access to hosted completion services.
//
// Every call resolves its logical model name against the deployment map
// first, borrows a client handle from the provider's round-robin pool, and
// wraps the remote call in retry with exponential backoff. Only errors the
// provider adapters classified as rate-limited or transient are retried;
// permanent and unknown errors surface immediately.
package gateway

import (
	"context"
	"fmt"
	"time"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/deployment"
	"github.com/smartsource/agentloop/pool"
	"github.com/smartsource/agentloop/retry"
)

// Feature represents a capability that a provider may support.
type Feature string

const (
	FeatureChat      Feature = "chat"
	FeatureEmbedding Feature = "embedding"
)

// providerCapabilities defines which features each provider supports.
var providerCapabilities = map[ai.Provider]map[Feature]bool{
	ai.ProviderOpenAI: {
		FeatureChat:      true,
		FeatureEmbedding: true,
	},
	ai.ProviderAnthropic: {
		FeatureChat:      true,
		FeatureEmbedding: false,
	},
}

// ErrFeatureNotSupported is returned when a feature is unavailable for the provider.
type ErrFeatureNotSupported struct {
	Provider string
	Feature  string
}

func (e *ErrFeatureNotSupported) Error() string {
	return fmt.Sprintf("%s provider does not support %s", e.Provider, e.Feature)
}

// Config holds configuration for creating a gateway.
type Config struct {
	// Deployments maps logical model names to backend deployments.
	Deployments deployment.Map

	// RetryConfig configures retry behavior for retryable errors.
	// If nil, uses the default configuration (5 attempts, 2s base delay,
	// 60s cap, 2x multiplier).
	RetryConfig *retry.Config

	// Events is an optional channel for receiving gateway operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event
}

// Gateway routes completion and embedding requests to backend deployments.
// It is safe for concurrent use.
type Gateway struct {
	deployments deployment.Map
	pools       map[ai.Provider]*pool.Pool[ai.ChatProvider]
	retryConfig retry.Config
	events      chan<- Event
}

// New creates a gateway with the given configuration. Client pools are
// registered separately with RegisterPool.
func New(cfg Config) *Gateway {
	retryConfig := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	return &Gateway{
		deployments: cfg.Deployments,
		pools:       make(map[ai.Provider]*pool.Pool[ai.ChatProvider]),
		retryConfig: retryConfig,
		events:      cfg.Events,
	}
}

// RegisterPool attaches a client pool for the given provider.
// Deployment map entries naming a provider without a registered pool fail
// at call time with a permanent error.
func (g *Gateway) RegisterPool(provider ai.Provider, p *pool.Pool[ai.ChatProvider]) {
	g.pools[provider] = p
}

// Models returns the logical model names the gateway can serve.
func (g *Gateway) Models() []string {
	return g.deployments.Models()
}

// acquire resolves the logical model and borrows a client from the
// deployment's provider pool. Resolution failures surface before any
// network attempt.
func (g *Gateway) acquire(model string) (ai.ChatProvider, deployment.Deployment, error) {
	dep, err := g.deployments.Resolve(model)
	if err != nil {
		return nil, deployment.Deployment{}, err
	}

	p, ok := g.pools[dep.Provider]
	if !ok {
		return nil, dep, ai.NewPermanentError(
			fmt.Sprintf("no client pool registered for provider %s", dep.Provider), 0, nil)
	}

	client, err := p.Acquire()
	if err != nil {
		return nil, dep, ai.NewPermanentError(
			fmt.Sprintf("no %s client available", dep.Provider), 0, err)
	}

	return client, dep, nil
}

// Complete resolves the model, borrows a client and sends the conversation,
// returning the complete response. Rate-limited and transient failures are
// retried with exponential backoff; an unconfigured model fails immediately
// with *agentloop.ModelNotAvailableError and zero network attempts.
func (g *Gateway) Complete(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	client, dep, err := g.acquire(model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	emit(g.events, Event{
		Type:       EventRequestStart,
		Operation:  "complete",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
	})

	// The backend speaks deployment names, not logical names
	opts = append([]ai.Option{ai.WithModel(dep.Name)}, opts...)

	retryEvents := g.retryEventChannel("complete", model, dep)

	resp, err := retry.Do(ctx, g.retryConfig, retryEvents, func() (*ai.Response, error) {
		return client.Chat(ctx, messages, opts...)
	})

	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		emit(g.events, Event{
			Type:       EventRequestError,
			Operation:  "complete",
			Model:      model,
			Deployment: dep.Name,
			Provider:   dep.Provider,
			Duration:   time.Since(start),
			Error:      err,
		})
		return nil, err
	}

	var usage *ai.Usage
	if resp != nil {
		usage = &resp.Usage
	}
	emit(g.events, Event{
		Type:       EventRequestComplete,
		Operation:  "complete",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
		Duration:   time.Since(start),
		Usage:      usage,
	})
	return resp, nil
}

// CompleteStream is like Complete but returns a channel of streaming events.
// Retry covers establishing the stream connection, not individual chunks.
func (g *Gateway) CompleteStream(ctx context.Context, model string, messages []ai.Message, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	client, dep, err := g.acquire(model)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	emit(g.events, Event{
		Type:       EventRequestStart,
		Operation:  "complete_stream",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
	})

	opts = append([]ai.Option{ai.WithModel(dep.Name)}, opts...)

	retryEvents := g.retryEventChannel("complete_stream", model, dep)

	ch, err := retry.DoStream(ctx, g.retryConfig, retryEvents, func() (<-chan ai.StreamEvent, error) {
		return client.ChatStream(ctx, messages, opts...)
	})

	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		emit(g.events, Event{
			Type:       EventRequestError,
			Operation:  "complete_stream",
			Model:      model,
			Deployment: dep.Name,
			Provider:   dep.Provider,
			Duration:   time.Since(start),
			Error:      err,
		})
		return nil, err
	}

	emit(g.events, Event{
		Type:       EventRequestComplete,
		Operation:  "complete_stream",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
		Duration:   time.Since(start),
	})
	return ch, nil
}

// Embed generates one embedding vector per input text, preserving order.
// The resolved deployment's provider must support embeddings; otherwise
// ErrFeatureNotSupported is returned.
func (g *Gateway) Embed(ctx context.Context, model string, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyInput
	}

	client, dep, err := g.acquire(model)
	if err != nil {
		return nil, err
	}

	if !providerCapabilities[dep.Provider][FeatureEmbedding] {
		return nil, &ErrFeatureNotSupported{Provider: dep.Provider.String(), Feature: "embedding"}
	}

	embedder, ok := client.(ai.EmbeddingProvider)
	if !ok {
		return nil, &ErrFeatureNotSupported{Provider: dep.Provider.String(), Feature: "embedding"}
	}

	start := time.Now()
	emit(g.events, Event{
		Type:       EventRequestStart,
		Operation:  "embed",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
	})

	retryEvents := g.retryEventChannel("embed", model, dep)

	resp, err := retry.Do(ctx, g.retryConfig, retryEvents, func() (*ai.EmbeddingResponse, error) {
		return embedder.Embed(ctx, dep.Name, texts)
	})

	if retryEvents != nil {
		close(retryEvents)
	}

	if err != nil {
		emit(g.events, Event{
			Type:       EventRequestError,
			Operation:  "embed",
			Model:      model,
			Deployment: dep.Name,
			Provider:   dep.Provider,
			Duration:   time.Since(start),
			Error:      err,
		})
		return nil, err
	}

	emit(g.events, Event{
		Type:       EventRequestComplete,
		Operation:  "embed",
		Model:      model,
		Deployment: dep.Name,
		Provider:   dep.Provider,
		Duration:   time.Since(start),
		Usage:      &resp.Usage,
	})
	return resp.Embeddings, nil
}

// retryEventChannel creates a retry event channel and starts forwarding it
// to the gateway's event channel. Returns nil when events are disabled.
func (g *Gateway) retryEventChannel(operation, model string, dep deployment.Deployment) chan retry.Event {
	if g.events == nil {
		return nil
	}
	retryEvents := make(chan retry.Event, 10)
	go func() {
		for re := range retryEvents {
			reCopy := re
			emit(g.events, Event{
				Type:       EventRetry,
				Operation:  operation,
				Model:      model,
				Deployment: dep.Name,
				Provider:   dep.Provider,
				RetryEvent: &reCopy,
			})
		}
	}()
	return retryEvents
}
