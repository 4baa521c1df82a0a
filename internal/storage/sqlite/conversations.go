package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/vecblob"
	"github.com/sandevgo/recall/pkg/log"
)

type ConversationsRepo struct {
	db *sql.DB
}

func NewConversationsRepo(db *sql.DB) *ConversationsRepo {
	return &ConversationsRepo{db: db}
}

func (r *ConversationsRepo) Append(ctx context.Context, turn core.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	vecBlob, err := vecblob.Serialize(turn.Embedding)
	if err != nil {
		return err
	}

	query := `INSERT INTO conversations (id, user_id, message, response, language, embedding, topic, num_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		turn.ID, turn.UserID, turn.Message, turn.Response, turn.Language,
		vecBlob, nullString(turn.Topic), nullInt(turn.NumTokens), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (r *ConversationsRepo) Recent(ctx context.Context, userID string, limit int) ([]core.ConversationTurn, error) {
	query := `SELECT id, user_id, message, response, language, embedding, topic, num_tokens, created_at
		FROM conversations WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.queryTurns(ctx, query, userID, limit)
}

func (r *ConversationsRepo) RecentWithin(ctx context.Context, userID string, since time.Time, limit int) ([]core.ConversationTurn, error) {
	query := `SELECT id, user_id, message, response, language, embedding, topic, num_tokens, created_at
		FROM conversations WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC LIMIT ?`
	return r.queryTurns(ctx, query, userID, since, limit)
}

func (r *ConversationsRepo) queryTurns(ctx context.Context, query string, args ...any) ([]core.ConversationTurn, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var turns []core.ConversationTurn
	for rows.Next() {
		var t core.ConversationTurn
		var emb []byte
		var topic sql.NullString
		var numTokens sql.NullInt64

		if err := rows.Scan(&t.ID, &t.UserID, &t.Message, &t.Response, &t.Language,
			&emb, &topic, &numTokens, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		t.Topic = topic.String
		t.NumTokens = int(numTokens.Int64)
		if t.Embedding, err = vecblob.Deserialize(emb); err != nil {
			return nil, err
		}

		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Debug().Int("count", len(turns)).Msg("loaded conversation turns")
	return turns, nil
}

func (r *ConversationsRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge conversations: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
