package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type ContextRepo struct {
	db     *sql.DB
	window int
}

func NewContextRepo(db *sql.DB, window int) *ContextRepo {
	return &ContextRepo{db: db, window: window}
}

func (r *ContextRepo) Get(ctx context.Context, userID string) ([]core.ContextEntry, error) {
	query := `SELECT role, content, created_at FROM context_entries
		WHERE user_id = ? ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query context entries: %w", err)
	}
	defer rows.Close()

	var entries []core.ContextEntry
	for rows.Next() {
		var e core.ContextEntry
		if err := rows.Scan(&e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan context entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Append inserts the entries and trims the user's cache back to the window,
// oldest entries first.
func (r *ContextRepo) Append(ctx context.Context, userID string, entries ...core.ContextEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO context_entries (user_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			userID, e.Role, e.Content, createdAt); err != nil {
			return fmt.Errorf("failed to insert context entry: %w", err)
		}
	}

	if r.window > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM context_entries WHERE user_id = ? AND id NOT IN (
				SELECT id FROM context_entries WHERE user_id = ? ORDER BY id DESC LIMIT ?
			)`, userID, userID, r.window); err != nil {
			return fmt.Errorf("failed to trim context entries: %w", err)
		}
	}

	return tx.Commit()
}
