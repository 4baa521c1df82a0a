package core

import (
	"context"
	"time"
)

type UserStore interface {
	// GetOrCreate is idempotent: a second call for the same id returns the
	// existing record without error.
	GetOrCreate(ctx context.Context, userID string) (User, error)
	Preferences(ctx context.Context, userID string) (map[string]string, error)
	SetPreference(ctx context.Context, userID, key, value string) error
	Touch(ctx context.Context, userID string, at time.Time) error
}

type ConversationStore interface {
	Append(ctx context.Context, turn ConversationTurn) error
	// Recent returns up to limit turns, newest-first.
	Recent(ctx context.Context, userID string, limit int) ([]ConversationTurn, error)
	// RecentWithin returns up to limit turns created at or after since,
	// newest-first. Turns outside the window are invisible even if recent
	// in index order.
	RecentWithin(ctx context.Context, userID string, since time.Time, limit int) ([]ConversationTurn, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type MemoryStore interface {
	Append(ctx context.Context, mem Memory) error
	Active(ctx context.Context, userID string) ([]Memory, error)
	Deactivate(ctx context.Context, userID, memoryID string) error
}

// ContextCache holds the per-user rolling context, capped at a configured
// window with FIFO eviction.
type ContextCache interface {
	Get(ctx context.Context, userID string) ([]ContextEntry, error)
	Append(ctx context.Context, userID string, entries ...ContextEntry) error
}

// Stores bundles the storage capabilities of one backend. Each store commits
// independently; no cross-store transaction is assumed.
type Stores struct {
	Users         UserStore
	Conversations ConversationStore
	Memories      MemoryStore
	Context       ContextCache
}
