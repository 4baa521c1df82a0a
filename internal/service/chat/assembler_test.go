package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/memdb"
)

func newTestAssembler(cfg *config.AppConfig, stores core.Stores, llm *fakeLLM) *Assembler {
	summarizer := NewSummarizer(llm, &fakeEmbedder{def: embeddingWithCosine(0.5)}, stores.Memories)
	return NewAssembler(cfg, stores.Users, stores.Conversations, stores.Memories,
		HeuristicEstimator{}, summarizer, NewSysPrompt("sys"))
}

func testConfig(maxTokens int) *config.AppConfig {
	return &config.AppConfig{
		MaxContextTokens:        maxTokens,
		MaxContextLength:        10,
		ContextSummaryThreshold: 5,
		MemoryLimit:             5,
		ContextWindow:           10,
	}
}

func TestAssembler_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "unused"}

	require.NoError(t, stores.Users.SetPreference(ctx, "u1", core.PrefLanguage, "Spanish"))
	require.NoError(t, stores.Users.SetPreference(ctx, "u1", core.PrefTopics, "go, chess, hiking, extra"))

	require.NoError(t, stores.Memories.Append(ctx, core.Memory{
		UserID: "u1", Kind: core.MemoryFact, Content: "Likes tea",
		Importance: 1.0, Embedding: embeddingWithCosine(0.9),
	}))
	require.NoError(t, stores.Memories.Append(ctx, core.Memory{
		UserID: "u1", Kind: core.MemoryFact, Content: "Owns a dog",
		Importance: 0.5, Embedding: embeddingWithCosine(0.9),
	}))

	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID: "u1", Message: "hi", Response: "hello",
	}))
	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID: "u1", Message: "how are you", Response: "fine",
	}))

	a := newTestAssembler(testConfig(4000), stores, llm)
	messages := a.Build(ctx, "u1", embeddingWithCosine(1.0))

	require.Len(t, messages, 8)
	assert.Equal(t, core.Message{Role: core.RoleSystem, Content: "sys"}, messages[0])
	assert.Equal(t, "User's preferred language: Spanish", messages[1].Content)
	assert.Equal(t, "Frequently discussed topics: go, chess, hiking", messages[2].Content)
	assert.Equal(t, "Relevant information about the user:\n- Likes tea\n- Owns a dog", messages[3].Content)
	assert.Equal(t, core.Message{Role: core.RoleUser, Content: "hi"}, messages[4])
	assert.Equal(t, core.Message{Role: core.RoleAssistant, Content: "hello"}, messages[5])
	assert.Equal(t, core.Message{Role: core.RoleUser, Content: "how are you"}, messages[6])
	assert.Equal(t, core.Message{Role: core.RoleAssistant, Content: "fine"}, messages[7])

	// Nothing to summarize under a generous budget.
	assert.Empty(t, llm.calls)
}

func TestAssembler_BudgetNeverExceeded(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "unused"}

	require.NoError(t, stores.Users.SetPreference(ctx, "u1", core.PrefLanguage, "German"))
	for i := 0; i < 8; i++ {
		require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
			UserID:   "u1",
			Message:  strings.Repeat("q", 40),
			Response: strings.Repeat("a", 40),
		}))
	}

	cfg := testConfig(60)
	a := newTestAssembler(cfg, stores, llm)
	messages := a.Build(ctx, "u1", nil)

	est := HeuristicEstimator{}
	total := 0
	for _, m := range messages {
		total += est.Estimate(m.Content)
	}
	assert.LessOrEqual(t, total, cfg.MaxContextTokens)
}

func TestAssembler_TurnPairsNeverSplit(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "unused"}

	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID: "u1", Message: "hi", Response: "yo",
	}))
	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID: "u1", Message: strings.Repeat("x", 40), Response: "ok",
	}))

	// Budget fits the first pair but not the second; the second is dropped
	// whole, never half.
	a := newTestAssembler(testConfig(6), stores, llm)
	messages := a.Build(ctx, "u1", nil)

	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[1].Content)
	assert.Equal(t, "yo", messages[2].Content)

	// One dropped pair stays below the summarization threshold.
	assert.Empty(t, llm.calls)
}

func TestAssembler_OverflowTriggersSummarization(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "talked about testing"}

	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
			UserID:   "u1",
			Message:  strings.Repeat("q", 200),
			Response: strings.Repeat("a", 200),
		}))
	}

	cfg := testConfig(60)
	cfg.ContextSummaryThreshold = 3
	a := newTestAssembler(cfg, stores, llm)
	messages := a.Build(ctx, "u1", nil)

	// Exactly one summarization call for the three dropped turns.
	require.Len(t, llm.calls, 1)

	require.Len(t, messages, 2)
	assert.Equal(t, "sys", messages[0].Content)
	assert.Equal(t, "Summary of earlier conversation:\ntalked about testing", messages[1].Content)
	assert.Equal(t, core.RoleSystem, messages[1].Role)

	mems, err := stores.Memories.Active(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, core.MemorySummarization, mems[0].Kind)
}

func TestAssembler_SummaryDroppedWhenOverBudget(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: strings.Repeat("s", 100)}

	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
			UserID:   "u1",
			Message:  strings.Repeat("q", 200),
			Response: strings.Repeat("a", 200),
		}))
	}

	cfg := testConfig(2)
	cfg.ContextSummaryThreshold = 3
	a := newTestAssembler(cfg, stores, llm)
	messages := a.Build(ctx, "u1", nil)

	// The summary text does not fit, but the memory write already happened.
	require.Len(t, messages, 1)
	assert.Equal(t, "sys", messages[0].Content)

	mems, err := stores.Memories.Active(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, core.MemorySummarization, mems[0].Kind)
}

func TestAssembler_MemoryBulletsGatedIndividually(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "unused"}

	require.NoError(t, stores.Memories.Append(ctx, core.Memory{
		UserID: "u1", Kind: core.MemoryFact, Content: "tea",
		Importance: 1.0, Embedding: embeddingWithCosine(0.9),
	}))
	require.NoError(t, stores.Memories.Append(ctx, core.Memory{
		UserID: "u1", Kind: core.MemoryFact, Content: strings.Repeat("z", 80),
		Importance: 1.0, Embedding: embeddingWithCosine(0.5),
	}))

	a := newTestAssembler(testConfig(12), stores, llm)
	messages := a.Build(ctx, "u1", embeddingWithCosine(1.0))

	require.Len(t, messages, 2)
	assert.Equal(t, "Relevant information about the user:\n- tea", messages[1].Content)
}

func TestAssembler_SystemPromptAlwaysIncluded(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	llm := &fakeLLM{content: "unused"}

	// Budget smaller than the system prompt itself.
	a := newTestAssembler(testConfig(0), stores, llm)
	messages := a.Build(ctx, "u1", nil)

	require.Len(t, messages, 1)
	assert.Equal(t, "sys", messages[0].Content)
}

func TestSplitTopics(t *testing.T) {
	assert.Nil(t, splitTopics("", 3))
	assert.Equal(t, []string{"go"}, splitTopics("go", 3))
	assert.Equal(t, []string{"go", "chess", "hiking"}, splitTopics(" go , chess,hiking , extra", 3))
	assert.Nil(t, splitTopics(" , ,", 3))
}
