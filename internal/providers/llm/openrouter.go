package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/providers/httpc"
)

// OpenRouter implements core.LLMProvider against the OpenRouter chat
// completions API. Non-2xx responses surface as errors; the caller decides
// whether the stage degrades or the request fails.
type OpenRouter struct {
	api   *httpc.Client
	model string
}

func NewOpenRouter(cfg *config.OpenRouterConfig) *OpenRouter {
	return &OpenRouter{
		api:   httpc.New(cfg.BaseURL, cfg.APIKey, 120*time.Second),
		model: cfg.Model,
	}
}

func (o *OpenRouter) Generate(ctx context.Context, messages []core.Message, opts core.GenerateOptions) (core.GenerateResult, error) {
	model := opts.Model
	if model == "" {
		model = o.model
	}

	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"temperature": opts.Temperature,
		"stream":      false,
		"usage":       map[string]any{"include": true},
	}

	// OpenRouter attributes traffic per app through these two headers.
	headers := map[string]string{
		"HTTP-Referer": core.AppRepositoryURL,
		"X-Title":      core.AppName,
	}

	var result struct {
		Choices []struct {
			Message      core.Message `json:"message"`
			FinishReason string       `json:"finish_reason"`
		} `json:"choices"`
		Usage core.Usage `json:"usage"`
	}
	if err := o.api.PostJSON(ctx, "/v1/chat/completions", payload, &result, headers); err != nil {
		return core.GenerateResult{}, err
	}
	if len(result.Choices) == 0 {
		return core.GenerateResult{}, fmt.Errorf("empty choices in completion response")
	}

	return core.GenerateResult{
		Content:      result.Choices[0].Message.Content,
		Usage:        result.Usage,
		FinishReason: result.Choices[0].FinishReason,
	}, nil
}
