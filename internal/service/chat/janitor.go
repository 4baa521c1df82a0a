package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

const JanitorInterval = 6 * time.Hour

// Janitor periodically purges conversation turns older than the retention
// window. A retention of zero days disables purging entirely.
type Janitor struct {
	turns         core.ConversationStore
	interval      time.Duration
	retentionDays int
}

func NewJanitor(turns core.ConversationStore, retentionDays int) *Janitor {
	return &Janitor{
		turns:         turns,
		interval:      JanitorInterval,
		retentionDays: retentionDays,
	}
}

func (j *Janitor) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx).With().Str("component", "janitor").Logger()

	if j.retentionDays <= 0 {
		logger.Info().Msg("conversation retention disabled, janitor idle")
		<-ctx.Done()
		return nil
	}

	logger.Info().Int("retention_days", j.retentionDays).Msg("starting conversation janitor")

	// One pass at startup so a long-stopped instance catches up immediately.
	j.purge(ctx, logger)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down conversation janitor")
			return nil
		case <-ticker.C:
			j.purge(ctx, logger)
		}
	}
}

func (j *Janitor) Shutdown(ctx context.Context) error {
	return nil
}

func (j *Janitor) purge(ctx context.Context, logger zerolog.Logger) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)

	purged, err := j.turns.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("conversation purge failed")
		return
	}
	if purged > 0 {
		logger.Info().Int64("purged", purged).Time("cutoff", cutoff).Msg("purged old conversations")
	}
}
