// Package memdb is the in-process storage backend. It backs local
// development runs with no configuration and the service-level tests.
package memdb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/recall/internal/core"
)

type state struct {
	mu            sync.RWMutex
	users         map[string]*core.User
	conversations map[string][]core.ConversationTurn
	memories      map[string][]core.Memory
	contexts      map[string][]core.ContextEntry
	contextWindow int
}

// New returns a full in-memory storage set sharing one guarded state.
func New(contextWindow int) core.Stores {
	s := &state{
		users:         make(map[string]*core.User),
		conversations: make(map[string][]core.ConversationTurn),
		memories:      make(map[string][]core.Memory),
		contexts:      make(map[string][]core.ContextEntry),
		contextWindow: contextWindow,
	}
	return core.Stores{
		Users:         &userStore{s},
		Conversations: &conversationStore{s},
		Memories:      &memoryStore{s},
		Context:       &contextCache{s},
	}
}

type userStore struct{ *state }

func (s *userStore) GetOrCreate(_ context.Context, userID string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(userID), nil
}

func (s *state) getOrCreateLocked(userID string) *core.User {
	if u, ok := s.users[userID]; ok {
		return u
	}
	now := time.Now().UTC()
	u := &core.User{
		ID:          userID,
		CreatedAt:   now,
		LastActive:  now,
		Preferences: make(map[string]string),
	}
	s.users[userID] = u
	return u
}

func (s *userStore) Preferences(_ context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return map[string]string{}, nil
	}
	prefs := make(map[string]string, len(u.Preferences))
	for k, v := range u.Preferences {
		prefs[k] = v
	}
	return prefs, nil
}

func (s *userStore) SetPreference(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.getOrCreateLocked(userID)
	u.Preferences[key] = value
	return nil
}

func (s *userStore) Touch(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.LastActive = at
	}
	return nil
}

type conversationStore struct{ *state }

func (s *conversationStore) Append(_ context.Context, turn core.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.conversations[turn.UserID] = append(s.conversations[turn.UserID], turn)
	return nil
}

func (s *conversationStore) Recent(_ context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.conversations[userID], limit, time.Time{}), nil
}

func (s *conversationStore) RecentWithin(_ context.Context, userID string, since time.Time, limit int) ([]core.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.conversations[userID], limit, since), nil
}

// newestFirst walks the append-ordered slice backwards, skipping turns
// created before since when a window is given.
func newestFirst(turns []core.ConversationTurn, limit int, since time.Time) []core.ConversationTurn {
	var out []core.ConversationTurn
	for i := len(turns) - 1; i >= 0 && len(out) < limit; i-- {
		if !since.IsZero() && turns[i].CreatedAt.Before(since) {
			continue
		}
		out = append(out, turns[i])
	}
	return out
}

func (s *conversationStore) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for userID, turns := range s.conversations {
		kept := turns[:0]
		for _, t := range turns {
			if t.CreatedAt.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, t)
		}
		s.conversations[userID] = kept
	}
	return purged, nil
}

type memoryStore struct{ *state }

func (s *memoryStore) Append(_ context.Context, mem core.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mem.ID == "" {
		mem.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = now
	}
	if mem.LastAccessed.IsZero() {
		mem.LastAccessed = now
	}
	mem.Active = true
	s.memories[mem.UserID] = append(s.memories[mem.UserID], mem)
	return nil
}

func (s *memoryStore) Active(_ context.Context, userID string) ([]core.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Memory
	for _, m := range s.memories[userID] {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) Deactivate(_ context.Context, userID, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mems := s.memories[userID]
	for i := range mems {
		if mems[i].ID == memoryID {
			mems[i].Active = false
		}
	}
	return nil
}

type contextCache struct{ *state }

func (s *contextCache) Get(_ context.Context, userID string) ([]core.ContextEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.contexts[userID]
	out := make([]core.ContextEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *contextCache) Append(_ context.Context, userID string, entries ...core.ContextEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := append(s.contexts[userID], entries...)
	if s.contextWindow > 0 && len(cached) > s.contextWindow {
		cached = cached[len(cached)-s.contextWindow:]
	}
	s.contexts[userID] = cached
	return nil
}
