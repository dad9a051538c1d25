package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	ai "github.com/smartsource/agentloop"
)

// Embed generates embeddings for the provided texts.
// The returned vectors match the input order.
func (c *Client) Embed(ctx context.Context, model string, texts []string) (*ai.EmbeddingResponse, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: at least one text is required for embedding", ai.ErrEmptyInput)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}

	// Embeddings are returned in input order
	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}

	return &ai.EmbeddingResponse{
		Embeddings: embeddings,
		Usage: ai.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: 0, // Embeddings don't have output tokens
		},
	}, nil
}
