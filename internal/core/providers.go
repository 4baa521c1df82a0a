package core

import "context"

// LLMProvider is a long-lived, stateless client safe for concurrent use.
type LLMProvider interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (GenerateResult, error)
}

// EmbeddingProvider turns texts into fixed-length vectors, one per input,
// order-preserving.
type EmbeddingProvider interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}
