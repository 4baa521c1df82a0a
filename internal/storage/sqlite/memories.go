package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/vecblob"
)

type MemoriesRepo struct {
	db *sql.DB
}

func NewMemoriesRepo(db *sql.DB) *MemoriesRepo {
	return &MemoriesRepo{db: db}
}

func (r *MemoriesRepo) Append(ctx context.Context, mem core.Memory) error {
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

	vecBlob, err := vecblob.Serialize(mem.Embedding)
	if err != nil {
		return err
	}

	query := `INSERT INTO memories (id, user_id, kind, content, importance, embedding, active, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		mem.ID, mem.UserID, string(mem.Kind), mem.Content, mem.Importance,
		vecBlob, mem.CreatedAt, mem.LastAccessed)
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// Active returns the user's active memories in insertion order. Ranking is
// computed in-process by the caller.
func (r *MemoriesRepo) Active(ctx context.Context, userID string) ([]core.Memory, error) {
	query := `SELECT id, user_id, kind, content, importance, embedding, created_at, last_accessed
		FROM memories WHERE user_id = ? AND active = 1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var memories []core.Memory
	for rows.Next() {
		var m core.Memory
		var kind string
		var emb []byte

		if err := rows.Scan(&m.ID, &m.UserID, &kind, &m.Content, &m.Importance,
			&emb, &m.CreatedAt, &m.LastAccessed); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
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

func (r *MemoriesRepo) Deactivate(ctx context.Context, userID, memoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memories SET active = 0 WHERE user_id = ? AND id = ?`, userID, memoryID)
	if err != nil {
		return fmt.Errorf("failed to deactivate memory: %w", err)
	}
	return nil
}
