package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/internal/storage/memdb"
)

func TestDetector_FirstMatchWins(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	now := time.Now().UTC()

	// Appended oldest first, so the newest turn has similarity 0.9. The
	// scan stops at the first turn over the threshold even though the
	// middle turn is a better match.
	sims := []float64{0.7, 0.95, 0.9}
	for i, sim := range sims {
		require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
			UserID:    "u1",
			Message:   "m",
			Response:  "r",
			Embedding: embeddingWithCosine(sim),
			CreatedAt: now.Add(time.Duration(i-3) * time.Second),
		}))
	}

	d := NewDetector(stores.Conversations)
	query := embeddingWithCosine(1.0)

	isRep, matched := d.Check(ctx, "u1", query, now, 0.8, 30*time.Second)
	require.True(t, isRep)
	require.NotNil(t, matched)
	// First match wins, not best match: the 0.95 turn is never reached.
	assert.InDelta(t, 0.9, float64(matched.Embedding[0]), 1e-6)
}

func TestDetector_TimeWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	query := embeddingWithCosine(1.0)

	tests := []struct {
		name string
		age  time.Duration
		want bool
	}{
		{name: "inside window", age: 29 * time.Second, want: true},
		{name: "outside window", age: 31 * time.Second, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := memdb.New(10)
			require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
				UserID:    "u1",
				Message:   "same question",
				Response:  "same answer",
				Embedding: embeddingWithCosine(0.99),
				CreatedAt: now.Add(-tt.age),
			}))

			d := NewDetector(stores.Conversations)
			isRep, _ := d.Check(ctx, "u1", query, now, 0.8, 30*time.Second)
			assert.Equal(t, tt.want, isRep)
		})
	}
}

func TestDetector_SkipsIncomparableEmbeddings(t *testing.T) {
	ctx := context.Background()
	stores := memdb.New(10)
	now := time.Now().UTC()

	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID:    "u1",
		Embedding: []float32{1, 0, 0},
		CreatedAt: now,
	}))
	require.NoError(t, stores.Conversations.Append(ctx, core.ConversationTurn{
		UserID:    "u1",
		CreatedAt: now,
	}))

	d := NewDetector(stores.Conversations)
	isRep, matched := d.Check(ctx, "u1", embeddingWithCosine(1.0), now, 0.8, 30*time.Second)
	assert.False(t, isRep)
	assert.Nil(t, matched)
}

func TestDetector_NoEmbedding(t *testing.T) {
	d := NewDetector(memdb.New(10).Conversations)
	isRep, matched := d.Check(context.Background(), "u1", nil, time.Now(), 0.8, 30*time.Second)
	assert.False(t, isRep)
	assert.Nil(t, matched)
}

func TestDetector_StoreErrorDegrades(t *testing.T) {
	d := NewDetector(failingTurns{})
	isRep, matched := d.Check(context.Background(), "u1", embeddingWithCosine(1.0), time.Now(), 0.8, 30*time.Second)
	assert.False(t, isRep)
	assert.Nil(t, matched)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		want   float64
		wantOK bool
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1.0, wantOK: true},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0, wantOK: true},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1.0, wantOK: true},
		{name: "empty", a: nil, b: []float32{1, 0}, wantOK: false},
		{name: "dimension mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, wantOK: false},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 0}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cosineSimilarity(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}
