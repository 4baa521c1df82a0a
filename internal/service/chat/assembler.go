package chat

import (
	"context"
	"strings"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const maxTopicsInContext = 3

// Assembler builds the token-bounded message list for one generation call.
// Additions are strictly prioritized: system prompt, preferred language,
// topics, relevant memories, then recent turns. Items that do not fit are
// skipped whole, never truncated.
type Assembler struct {
	cfg        *config.AppConfig
	users      core.UserStore
	turns      core.ConversationStore
	memories   core.MemoryStore
	estimator  TokenEstimator
	summarizer *Summarizer
	prompt     *SysPrompt
}

func NewAssembler(
	cfg *config.AppConfig,
	users core.UserStore,
	turns core.ConversationStore,
	memories core.MemoryStore,
	estimator TokenEstimator,
	summarizer *Summarizer,
	prompt *SysPrompt,
) *Assembler {
	return &Assembler{
		cfg:        cfg,
		users:      users,
		turns:      turns,
		memories:   memories,
		estimator:  estimator,
		summarizer: summarizer,
		prompt:     prompt,
	}
}

// Build assembles the context for userID. The system prompt is always
// included, even when it alone approaches the budget; everything after it is
// gated by the remaining budget. Internal failures degrade stage by stage,
// never below the system prompt alone.
func (a *Assembler) Build(ctx context.Context, userID string, queryEmbedding []float32) []core.Message {
	logger := log.FromCtx(ctx)

	system := a.prompt.Message()
	messages := []core.Message{system}
	remaining := a.cfg.MaxContextTokens - a.estimator.Estimate(system.Content)

	// Preferred language and topics come from user preferences.
	prefs, err := a.users.Preferences(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load preferences for context")
		prefs = map[string]string{}
	}

	if lang := prefs[core.PrefLanguage]; lang != "" {
		line := "User's preferred language: " + lang
		if cost := a.estimator.Estimate(line); cost <= remaining {
			messages = append(messages, core.Message{Role: core.RoleSystem, Content: line})
			remaining -= cost
		}
	}

	if topics := splitTopics(prefs[core.PrefTopics], maxTopicsInContext); len(topics) > 0 {
		line := "Frequently discussed topics: " + strings.Join(topics, ", ")
		if cost := a.estimator.Estimate(line); cost <= remaining {
			messages = append(messages, core.Message{Role: core.RoleSystem, Content: line})
			remaining -= cost
		}
	}

	if block, cost := a.renderMemories(ctx, userID, queryEmbedding, remaining); block != "" {
		messages = append(messages, core.Message{Role: core.RoleSystem, Content: block})
		remaining -= cost
	}

	turnMsgs, overflow := a.fitRecentTurns(ctx, userID, remaining)
	for _, m := range turnMsgs {
		remaining -= a.estimator.Estimate(m.Content)
	}

	if len(overflow) >= a.cfg.ContextSummaryThreshold {
		// Summarization persists the memory regardless of whether the text
		// fits the current budget.
		summary, _ := a.summarizer.Summarize(ctx, userID, overflow)
		if summary != "" {
			content := "Summary of earlier conversation:\n" + summary
			if cost := a.estimator.Estimate(content); cost <= remaining {
				messages = append(messages, core.Message{Role: core.RoleSystem, Content: content})
				remaining -= cost
			}
		}
	}

	messages = append(messages, turnMsgs...)
	return messages
}

// renderMemories ranks the user's memories against the query embedding and
// renders the ones that fit as bullet lines under a single system block.
// Returns the block and its token cost.
func (a *Assembler) renderMemories(ctx context.Context, userID string, queryEmbedding []float32, remaining int) (string, int) {
	ranked := relevantMemories(ctx, a.memories, userID, queryEmbedding, a.cfg.MemoryLimit)
	if len(ranked) == 0 {
		return "", 0
	}

	const header = "Relevant information about the user:"
	var sb strings.Builder
	used := 0

	for _, sm := range ranked {
		bullet := "\n- " + sm.Memory.Content
		cost := a.estimator.Estimate(bullet)
		if used == 0 {
			cost += a.estimator.Estimate(header)
		}
		if used+cost > remaining {
			continue
		}
		if used == 0 {
			sb.WriteString(header)
		}
		sb.WriteString(bullet)
		used += cost
	}

	if used == 0 {
		return "", 0
	}
	return sb.String(), used
}

// fitRecentTurns walks the 2 x MaxContextLength most recent turns oldest
// first. A turn's user and assistant messages are budgeted together and
// never split; turns that do not fit are collected, in chronological order,
// as summarization overflow.
func (a *Assembler) fitRecentTurns(ctx context.Context, userID string, remaining int) ([]core.Message, []core.ConversationTurn) {
	recent, err := a.turns.Recent(ctx, userID, 2*a.cfg.MaxContextLength)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to load recent turns for context")
		return nil, nil
	}

	// Newest-first from the store; reverse into chronological order.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	var messages []core.Message
	var overflow []core.ConversationTurn

	for _, turn := range recent {
		cost := a.estimator.Estimate(turn.Message) + a.estimator.Estimate(turn.Response)
		if cost > remaining {
			overflow = append(overflow, turn)
			continue
		}
		messages = append(messages,
			core.Message{Role: core.RoleUser, Content: turn.Message},
			core.Message{Role: core.RoleAssistant, Content: turn.Response},
		)
		remaining -= cost
	}

	return messages, overflow
}

func splitTopics(raw string, limit int) []string {
	if raw == "" {
		return nil
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		topics = append(topics, t)
		if len(topics) == limit {
			break
		}
	}
	return topics
}
