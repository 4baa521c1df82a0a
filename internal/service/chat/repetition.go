package chat

import (
	"context"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// repetitionScanLimit caps how many recent turns are compared per check.
const repetitionScanLimit = 10

// Detector flags a new message as a near-duplicate of a recent turn by the
// same user. Read-only and best-effort: any failure degrades to no match.
type Detector struct {
	turns core.ConversationStore
}

func NewDetector(turns core.ConversationStore) *Detector {
	return &Detector{turns: turns}
}

// Check compares newEmbedding against turns within window of now,
// newest-first. The first turn whose similarity strictly exceeds threshold
// wins; it is not a best-match search.
func (d *Detector) Check(ctx context.Context, userID string, newEmbedding []float32, now time.Time, threshold float64, window time.Duration) (bool, *core.ConversationTurn) {
	if len(newEmbedding) == 0 {
		return false, nil
	}

	since := now.Add(-window)
	candidates, err := d.turns.RecentWithin(ctx, userID, since, repetitionScanLimit)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("repetition check failed, skipping")
		return false, nil
	}

	for i := range candidates {
		sim, ok := cosineSimilarity(newEmbedding, candidates[i].Embedding)
		if !ok {
			// Missing or mismatched-dimension embedding: not comparable.
			continue
		}
		if sim > threshold {
			return true, &candidates[i]
		}
	}

	return false, nil
}
