package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/providers/httpc"
	"github.com/sandevgo/recall/pkg/retry"
)

// Client talks to an OpenAI-compatible /v1/embeddings endpoint. Works with
// OpenRouter, llama.cpp server, Ollama and text-embeddings-inference.
type Client struct {
	api     *httpc.Client
	model   string
	retrier *retry.Retrier
}

func NewClient(cfg *config.EmbeddingConfig) *Client {
	return &Client{
		api:     httpc.New(cfg.BaseURL, cfg.APIKey, 60*time.Second),
		model:   cfg.Model,
		retrier: retry.NewDefaultRetrier(),
	}
}

// Encode returns one vector per input text, order-preserving. Transient
// transport failures are retried; a final failure surfaces as an error for
// the caller to degrade on.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := c.retrier.Do(ctx, func() error {
		var opErr error
		vectors, opErr = c.encode(ctx, texts)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) encode(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]any{
		"model": c.model,
		"input": texts,
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.api.PostJSON(ctx, "/v1/embeddings", payload, &result, nil); err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
