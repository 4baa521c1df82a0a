package chat

import (
	"context"
	"time"

	"github.com/sandevgo/recall/internal/config"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const (
	generateTemperature = 0.7

	// FallbackResponse is returned to the user when the generation call
	// itself fails. No partial output is ever surfaced.
	FallbackResponse = "I apologize, but I'm having trouble processing your message right now. Please try again in a moment."
)

// Reply is the outcome of one processed message.
type Reply struct {
	Response     string                 `json:"response"`
	IsRepetition bool                   `json:"is_repetition"`
	Matched      *core.ConversationTurn `json:"similar_conversation,omitempty"`
	Usage        core.Usage             `json:"usage"`
}

// Service orchestrates a message through embedding, repetition detection,
// context assembly, generation, and persistence. Every stage after receipt
// is independently fault-tolerant; only the generation call itself is fatal
// to the request.
type Service struct {
	cfg       *config.AppConfig
	llm       core.LLMProvider
	embedder  core.EmbeddingProvider
	stores    core.Stores
	detector  *Detector
	assembler *Assembler
}

func NewService(
	cfg *config.AppConfig,
	llm core.LLMProvider,
	embedder core.EmbeddingProvider,
	stores core.Stores,
	estimator TokenEstimator,
	prompt *SysPrompt,
) *Service {
	summarizer := NewSummarizer(llm, embedder, stores.Memories)
	return &Service{
		cfg:      cfg,
		llm:      llm,
		embedder: embedder,
		stores:   stores,
		detector: NewDetector(stores.Conversations),
		assembler: NewAssembler(
			cfg, stores.Users, stores.Conversations, stores.Memories,
			estimator, summarizer, prompt,
		),
	}
}

// ProcessMessage runs the full turn pipeline. On a fatal generation failure
// the returned Reply already carries the fallback text, alongside the error
// for the transport to log.
func (s *Service) ProcessMessage(ctx context.Context, userID, message, language string) (Reply, error) {
	logger := log.FromCtx(ctx)
	now := time.Now().UTC()

	if language == "" {
		language = "en"
	}

	// User exists from the first message on. A storage fault here is logged
	// and the pipeline continues; nothing downstream requires the row.
	if _, err := s.stores.Users.GetOrCreate(ctx, userID); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to get or create user")
	}

	embedding := s.embed(ctx, message)

	threshold := s.cfg.RepetitionThreshold
	window := time.Duration(s.cfg.RepetitionTimeWindow) * time.Second
	if isRep, matched := s.detector.Check(ctx, userID, embedding, now, threshold, window); isRep {
		logger.Info().Str("user_id", userID).Msg("repetition detected, short-circuiting")
		return Reply{
			Response:     matched.Response,
			IsRepetition: true,
			Matched:      matched,
		}, nil
	}

	messages := s.assembler.Build(ctx, userID, embedding)
	messages = append(messages, core.Message{Role: core.RoleUser, Content: message})

	result, err := s.llm.Generate(ctx, messages, core.GenerateOptions{Temperature: generateTemperature})
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("generation failed")
		return Reply{Response: FallbackResponse}, err
	}

	// The user-visible result is never sacrificed for a storage fault: all
	// writes below are log-and-continue.
	turn := core.ConversationTurn{
		UserID:    userID,
		Message:   message,
		Response:  result.Content,
		Language:  language,
		Embedding: embedding,
		NumTokens: result.Usage.TotalTokens,
		CreatedAt: now,
	}
	if err := s.stores.Conversations.Append(ctx, turn); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to persist conversation turn")
	}

	if err := s.stores.Users.Touch(ctx, userID, now); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("failed to update last active")
	}

	if err := s.stores.Context.Append(ctx, userID,
		core.ContextEntry{Role: core.RoleUser, Content: message, CreatedAt: now},
		core.ContextEntry{Role: core.RoleAssistant, Content: result.Content, CreatedAt: now},
	); err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to update rolling context")
	}

	return Reply{Response: result.Content, Usage: result.Usage}, nil
}

// AddMemory stores an explicit memory for the user. The embedding is
// best-effort; an unembedded memory is durable but invisible to relevance
// ranking.
func (s *Service) AddMemory(ctx context.Context, userID string, kind core.MemoryKind, content string, importance float64) error {
	if importance == 0 {
		importance = 1.0
	}

	mem := core.Memory{
		UserID:     userID,
		Kind:       kind,
		Content:    content,
		Importance: importance,
		Embedding:  s.embed(ctx, content),
	}
	return s.stores.Memories.Append(ctx, mem)
}

// SetPreferredLanguage records the user's language preference, feeding the
// language line of future context builds.
func (s *Service) SetPreferredLanguage(ctx context.Context, userID, language string) error {
	return s.stores.Users.SetPreference(ctx, userID, core.PrefLanguage, language)
}

// RollingContext returns the user's rolling context cache, oldest first.
func (s *Service) RollingContext(ctx context.Context, userID string) ([]core.ContextEntry, error) {
	return s.stores.Context.Get(ctx, userID)
}

// embed computes the message embedding, degrading to nil on any provider
// failure: no repetition check, no persisted embedding, context still
// assembled.
func (s *Service) embed(ctx context.Context, text string) []float32 {
	vectors, err := s.embedder.Encode(ctx, []string{text})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("embedding failed, continuing without")
		return nil
	}
	if len(vectors) == 0 {
		return nil
	}
	return vectors[0]
}
