package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) GetOrCreate(ctx context.Context, userID string) (core.User, error) {
	// ON CONFLICT DO NOTHING keeps the second call for the same id a no-op.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, last_active, preferences FROM users WHERE id = ?`, userID)

	var u core.User
	var prefsJSON string
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.LastActive, &prefsJSON); err != nil {
		return core.User{}, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Preferences = map[string]string{}
	if prefsJSON != "" {
		if err := json.Unmarshal([]byte(prefsJSON), &u.Preferences); err != nil {
			return core.User{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	return u, nil
}

func (r *UsersRepo) Preferences(ctx context.Context, userID string) (map[string]string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT preferences FROM users WHERE id = ?`, userID)

	var prefsJSON string
	if err := row.Scan(&prefsJSON); err != nil {
		if err == sql.ErrNoRows {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to scan preferences: %w", err)
	}

	prefs := map[string]string{}
	if prefsJSON != "" {
		if err := json.Unmarshal([]byte(prefsJSON), &prefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	return prefs, nil
}

func (r *UsersRepo) SetPreference(ctx context.Context, userID, key, value string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	var prefsJSON string
	if err := tx.QueryRowContext(ctx,
		`SELECT preferences FROM users WHERE id = ?`, userID).Scan(&prefsJSON); err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	prefs := map[string]string{}
	if prefsJSON != "" {
		if err := json.Unmarshal([]byte(prefsJSON), &prefs); err != nil {
			return fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	prefs[key] = value

	updated, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET preferences = ? WHERE id = ?`, string(updated), userID); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	return tx.Commit()
}

func (r *UsersRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active = ? WHERE id = ?`, at, userID)
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}
