package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const (
	// summarizationImportance weights summaries below user-asserted
	// preferences and facts.
	summarizationImportance = 0.7
	summarizationTemp       = 0.3

	summarizationPrompt = `The following is a conversation history between a user and an AI assistant. Please summarize the key topics and outcomes of this conversation. Focus on important information that an AI assistant would need to remember for future interactions with this user. Be concise.

Conversation History:
%s

Summary:`
)

// Summarizer compresses overflow conversation turns into one durable memory.
type Summarizer struct {
	llm      core.LLMProvider
	embedder core.EmbeddingProvider
	memories core.MemoryStore
}

func NewSummarizer(llm core.LLMProvider, embedder core.EmbeddingProvider, memories core.MemoryStore) *Summarizer {
	return &Summarizer{
		llm:      llm,
		embedder: embedder,
		memories: memories,
	}
}

// Summarize renders turns into a transcript, asks the LLM for a concise
// summary, and persists it as a summarization memory. Any provider failure
// returns ("", 0); summarization never fails the enclosing call.
func (s *Summarizer) Summarize(ctx context.Context, userID string, turns []core.ConversationTurn) (string, int) {
	logger := log.FromCtx(ctx)

	if len(turns) == 0 {
		return "", 0
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", t.Message, t.Response))
	}
	prompt := fmt.Sprintf(summarizationPrompt, strings.Join(lines, "\n"))

	result, err := s.llm.Generate(ctx,
		[]core.Message{{Role: core.RoleUser, Content: prompt}},
		core.GenerateOptions{Temperature: summarizationTemp})
	if err != nil {
		logger.Error().Err(err).Msg("summarization failed")
		return "", 0
	}

	summary := strings.TrimSpace(result.Content)
	if summary == "" {
		return "", 0
	}

	mem := core.Memory{
		UserID:     userID,
		Kind:       core.MemorySummarization,
		Content:    summary,
		Importance: summarizationImportance,
	}

	// Embedding is best-effort; an unembedded summary is still durable,
	// just invisible to relevance ranking.
	if vectors, err := s.embedder.Encode(ctx, []string{summary}); err != nil {
		logger.Warn().Err(err).Msg("failed to embed summary")
	} else if len(vectors) > 0 {
		mem.Embedding = vectors[0]
	}

	if err := s.memories.Append(ctx, mem); err != nil {
		logger.Error().Err(err).Msg("failed to persist summarization memory")
		return "", 0
	}

	logger.Info().Int("turns", len(turns)).Str("user_id", userID).Msg("summarized conversation overflow")
	return summary, result.Usage.TotalTokens
}
