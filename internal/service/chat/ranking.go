package chat

import (
	"context"
	"sort"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
)

// ScoredMemory pairs a memory with its ranking score.
type ScoredMemory struct {
	Memory     core.Memory
	Similarity float64
}

// Score is similarity multiplied by the caller-assigned importance.
// Importance is a raw weighting, not a probability; the product is only used
// to order memories.
func (s ScoredMemory) Score() float64 {
	return s.Similarity * s.Memory.Importance
}

// RankMemories orders memories by similarity x importance, descending.
// Memories with no embedding or a mismatched dimension are skipped. The sort
// is stable, so ties keep store iteration order.
func RankMemories(memories []core.Memory, queryEmbedding []float32, limit int) []ScoredMemory {
	if len(queryEmbedding) == 0 {
		return nil
	}

	scored := make([]ScoredMemory, 0, len(memories))
	for _, m := range memories {
		sim, ok := cosineSimilarity(queryEmbedding, m.Embedding)
		if !ok {
			continue
		}
		scored = append(scored, ScoredMemory{Memory: m, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score() > scored[j].Score()
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// relevantMemories fetches the user's active memories and ranks them against
// the query embedding. Empty results are a valid outcome; storage errors
// degrade to none.
func relevantMemories(ctx context.Context, store core.MemoryStore, userID string, queryEmbedding []float32, limit int) []ScoredMemory {
	if len(queryEmbedding) == 0 {
		return nil
	}

	memories, err := store.Active(ctx, userID)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("failed to fetch memories for ranking")
		return nil
	}

	return RankMemories(memories, queryEmbedding, limit)
}
