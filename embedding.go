package agentloop

import "context"

// EmbeddingProvider defines the interface for AI embedding providers.
type EmbeddingProvider interface {
	// Embed generates embeddings for the provided texts using the given model.
	// The returned vectors match the input order. Returns an error if texts
	// is empty.
	Embed(ctx context.Context, model string, texts []string) (*EmbeddingResponse, error)
}

// EmbeddingResponse represents a complete response from an embedding provider.
type EmbeddingResponse struct {
	// Embeddings contains one embedding vector per input text.
	// The order matches the input texts order.
	Embeddings [][]float64
	// Usage contains token usage information.
	Usage Usage
}
