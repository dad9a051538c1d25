// Command serve runs the agent runtime as an HTTP service.
//
// Endpoints:
//
//	POST /invoke      run one blocking agent turn
//	POST /stream      run one turn, streaming fragments over SSE
//	POST /threads     create a conversation thread
//	POST /embeddings  embed texts
//	GET  /healthz     health check
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ai "github.com/smartsource/agentloop"
	"github.com/smartsource/agentloop/agent"
	"github.com/smartsource/agentloop/config"
	"github.com/smartsource/agentloop/gateway"
	"github.com/smartsource/agentloop/pool"
	"github.com/smartsource/agentloop/provider/anthropic"
	"github.com/smartsource/agentloop/provider/openai"
	"github.com/smartsource/agentloop/retry"
	"github.com/smartsource/agentloop/store"
	"github.com/smartsource/agentloop/tool"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	setupLogging(settings.LogLevel)

	gw := buildGateway(settings)

	adapter, err := buildAdapter()
	if err != nil {
		slog.Error("storage setup failed", "error", err)
		os.Exit(1)
	}
	threads := store.NewThreadStore(adapter)

	registry := tool.NewRegistry()
	SetupDemoTools(registry)

	a := agent.New(gw, threads, registry, agent.Config{
		MaxIterations: settings.MaxIterations,
	})

	h := NewHandler(a, gw)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke", h.Invoke)
	mux.HandleFunc("POST /stream", h.Stream)
	mux.HandleFunc("POST /threads", h.CreateThread)
	mux.HandleFunc("POST /embeddings", h.Embed)
	mux.HandleFunc("GET /healthz", healthHandler)

	server := &http.Server{
		Addr:    ":" + settings.Port,
		Handler: mux,
	}

	go func() {
		slog.Info("server starting", "port", settings.Port, "tools", registry.Len())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// buildGateway assembles the deployment map, the per-provider client pools
// and the event drain.
func buildGateway(settings *config.Settings) *gateway.Gateway {
	events := make(chan gateway.Event, 64)
	go drainEvents(events)

	gw := gateway.New(gateway.Config{
		Deployments: settings.DeploymentMap(),
		Events:      events,
	})

	openaiPool := pool.New(settings.PoolSize, func() (ai.ChatProvider, error) {
		return openai.New(openai.Config{
			APIKey:          settings.OpenAIKey(),
			AzureEndpoint:   settings.Endpoint,
			AzureAPIVersion: settings.APIVersion,
		}), nil
	}, pool.WithFailureObserver[ai.ChatProvider](func(i int, err error) {
		slog.Warn("openai client init failed", "index", i, "error", err)
	}))
	slog.Info("openai pool ready", "size", openaiPool.Initialize())
	gw.RegisterPool(ai.ProviderOpenAI, openaiPool)

	if settings.AnthropicAPIKey != "" {
		anthropicPool := pool.New(settings.PoolSize, func() (ai.ChatProvider, error) {
			return anthropic.New(settings.AnthropicAPIKey), nil
		})
		slog.Info("anthropic pool ready", "size", anthropicPool.Initialize())
		gw.RegisterPool(ai.ProviderAnthropic, anthropicPool)
	}

	return gw
}

// buildAdapter picks the persistence backend: Redis when REDIS_URL is set,
// SQLite when SQLITE_PATH is set, in-memory otherwise.
func buildAdapter() (store.Adapter, error) {
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		slog.Info("using redis thread storage")
		return store.NewRedisAdapter(redisURL, "agentloop:threads", 0)
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		slog.Info("using sqlite thread storage", "path", path)
		return store.NewSQLiteAdapter(path)
	}
	slog.Info("using in-memory thread storage")
	return store.NewMemoryAdapter(), nil
}

// drainEvents logs gateway and retry events.
func drainEvents(events <-chan gateway.Event) {
	for ev := range events {
		switch ev.Type {
		case gateway.EventRequestError:
			slog.Error("request failed",
				"operation", ev.Operation,
				"model", ev.Model,
				"deployment", ev.Deployment,
				"provider", ev.Provider,
				"duration_ms", ev.Duration.Milliseconds(),
				"error", ev.Error,
			)
		case gateway.EventRequestComplete:
			attrs := []any{
				"operation", ev.Operation,
				"model", ev.Model,
				"deployment", ev.Deployment,
				"duration_ms", ev.Duration.Milliseconds(),
			}
			if ev.Usage != nil {
				attrs = append(attrs, "input_tokens", ev.Usage.InputTokens, "output_tokens", ev.Usage.OutputTokens)
			}
			slog.Info("request completed", attrs...)
		case gateway.EventRetry:
			if ev.RetryEvent != nil && ev.RetryEvent.Type == retry.EventRetrying {
				slog.Warn("retrying request",
					"operation", ev.Operation,
					"model", ev.Model,
					"attempt", ev.RetryEvent.Attempt,
					"max_attempts", ev.RetryEvent.MaxAttempts,
					"delay", ev.RetryEvent.Delay,
				)
			}
		}
	}
}
