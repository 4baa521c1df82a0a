// Package postgres is the pgx-backed storage backend, selected when
// DATABASE_URL is set. Schema is bootstrapped on connect.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/vecblob"
)

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT now(),
			preferences JSONB NOT NULL DEFAULT '{}'::jsonb
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'en',
			embedding BYTEA,
			topic TEXT,
			num_tokens INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user_created ON conversations (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			importance DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			embedding BYTEA,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_accessed TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_user_active ON memories (user_id, active);`,
		`CREATE TABLE IF NOT EXISTS context_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_context_entries_user ON context_entries (user_id, id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

func (d *DB) Stores(contextWindow int) core.Stores {
	return core.Stores{
		Users:         &usersRepo{d.pool},
		Conversations: &conversationsRepo{d.pool},
		Memories:      &memoriesRepo{d.pool},
		Context:       &contextRepo{pool: d.pool, window: contextWindow},
	}
}

type usersRepo struct {
	pool *pgxpool.Pool
}

func (r *usersRepo) GetOrCreate(ctx context.Context, userID string) (core.User, error) {
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return core.User{}, fmt.Errorf("upsert user: %w", err)
	}

	var u core.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, created_at, last_active, preferences FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.CreatedAt, &u.LastActive, &u.Preferences)
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	if u.Preferences == nil {
		u.Preferences = map[string]string{}
	}
	return u, nil
}

func (r *usersRepo) Preferences(ctx context.Context, userID string) (map[string]string, error) {
	prefs := map[string]string{}
	err := r.pool.QueryRow(ctx,
		`SELECT preferences FROM users WHERE id = $1`, userID).Scan(&prefs)
	if err != nil {
		// Missing user is not an error; preferences are simply absent.
		return map[string]string{}, nil
	}
	return prefs, nil
}

func (r *usersRepo) SetPreference(ctx context.Context, userID, key, value string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, preferences) VALUES ($1, jsonb_build_object($2::text, $3::text))
		 ON CONFLICT (id) DO UPDATE SET preferences = users.preferences || jsonb_build_object($2::text, $3::text)`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (r *usersRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE users SET last_active = $1 WHERE id = $2`, at, userID); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

type conversationsRepo struct {
	pool *pgxpool.Pool
}

func (r *conversationsRepo) Append(ctx context.Context, turn core.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	emb, err := vecblob.Serialize(turn.Embedding)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO conversations (id, user_id, message, response, language, embedding, topic, num_tokens, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, 0), $9)`,
		turn.ID, turn.UserID, turn.Message, turn.Response, turn.Language,
		emb, turn.Topic, turn.NumTokens, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *conversationsRepo) Recent(ctx context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	return r.query(ctx,
		`SELECT id, user_id, message, response, language, embedding, COALESCE(topic, ''), COALESCE(num_tokens, 0), created_at
		 FROM conversations WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
}

func (r *conversationsRepo) RecentWithin(ctx context.Context, userID string, since time.Time, limit int) ([]core.ConversationTurn, error) {
	return r.query(ctx,
		`SELECT id, user_id, message, response, language, embedding, COALESCE(topic, ''), COALESCE(num_tokens, 0), created_at
		 FROM conversations WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at DESC, id DESC LIMIT $3`,
		userID, since, limit)
}

func (r *conversationsRepo) query(ctx context.Context, sql string, args ...any) ([]core.ConversationTurn, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var turns []core.ConversationTurn
	for rows.Next() {
		var t core.ConversationTurn
		var emb []byte
		if err := rows.Scan(&t.ID, &t.UserID, &t.Message, &t.Response, &t.Language,
			&emb, &t.Topic, &t.NumTokens, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if t.Embedding, err = vecblob.Deserialize(emb); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (r *conversationsRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM conversations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge conversations: %w", err)
	}
	return tag.RowsAffected(), nil
}

type memoriesRepo struct {
	pool *pgxpool.Pool
}

func (r *memoriesRepo) Append(ctx context.Context, mem core.Memory) error {
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

	emb, err := vecblob.Serialize(mem.Embedding)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO memories (id, user_id, kind, content, importance, embedding, active, created_at, last_accessed)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`,
		mem.ID, mem.UserID, string(mem.Kind), mem.Content, mem.Importance,
		emb, mem.CreatedAt, mem.LastAccessed)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (r *memoriesRepo) Active(ctx context.Context, userID string) ([]core.Memory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, kind, content, importance, embedding, created_at, last_accessed
		 FROM memories WHERE user_id = $1 AND active ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var memories []core.Memory
	for rows.Next() {
		var m core.Memory
		var kind string
		var emb []byte
		if err := rows.Scan(&m.ID, &m.UserID, &kind, &m.Content, &m.Importance,
			&emb, &m.CreatedAt, &m.LastAccessed); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Kind = core.MemoryKind(kind)
		m.Active = true
		if m.Embedding, err = vecblob.Deserialize(emb); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (r *memoriesRepo) Deactivate(ctx context.Context, userID, memoryID string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE memories SET active = FALSE WHERE user_id = $1 AND id = $2`, userID, memoryID); err != nil {
		return fmt.Errorf("deactivate memory: %w", err)
	}
	return nil
}

type contextRepo struct {
	pool   *pgxpool.Pool
	window int
}

func (r *contextRepo) Get(ctx context.Context, userID string) ([]core.ContextEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role, content, created_at FROM context_entries WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query context entries: %w", err)
	}
	defer rows.Close()

	var entries []core.ContextEntry
	for rows.Next() {
		var e core.ContextEntry
		if err := rows.Scan(&e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *contextRepo) Append(ctx context.Context, userID string, entries ...core.ContextEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO context_entries (user_id, role, content, created_at) VALUES ($1, $2, $3, $4)`,
			userID, e.Role, e.Content, createdAt); err != nil {
			return fmt.Errorf("insert context entry: %w", err)
		}
	}

	if r.window > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM context_entries WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM context_entries WHERE user_id = $1 ORDER BY id DESC LIMIT $2
			)`, userID, r.window); err != nil {
			return fmt.Errorf("trim context entries: %w", err)
		}
	}

	return tx.Commit(ctx)
}
