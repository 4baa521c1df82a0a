package chat

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

// fakeLLM returns canned content and records every call it receives.
type fakeLLM struct {
	content string
	usage   core.Usage
	err     error
	calls   [][]core.Message
	opts    []core.GenerateOptions
}

func (f *fakeLLM) Generate(_ context.Context, messages []core.Message, opts core.GenerateOptions) (core.GenerateResult, error) {
	f.calls = append(f.calls, messages)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return core.GenerateResult{}, f.err
	}
	return core.GenerateResult{Content: f.content, Usage: f.usage, FinishReason: "stop"}, nil
}

// fakeEmbedder maps texts to vectors; unmapped texts get the default vector.
type fakeEmbedder struct {
	vectors map[string][]float32
	def     []float32
	err     error
}

func (f *fakeEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = f.def
		}
	}
	return out, nil
}

// failingTurns errors on every read and write.
type failingTurns struct{}

var errStorage = errors.New("storage unavailable")

func (failingTurns) Append(context.Context, core.ConversationTurn) error { return errStorage }

func (failingTurns) Recent(context.Context, string, int) ([]core.ConversationTurn, error) {
	return nil, errStorage
}

func (failingTurns) RecentWithin(context.Context, string, time.Time, int) ([]core.ConversationTurn, error) {
	return nil, errStorage
}

func (failingTurns) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errStorage
}

// embeddingWithCosine builds a unit vector whose cosine similarity with
// [1, 0] equals sim.
func embeddingWithCosine(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}
