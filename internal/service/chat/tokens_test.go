package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicEstimator(t *testing.T) {
	est := HeuristicEstimator{}

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single char rounds up", text: "a", want: 1},
		{name: "exact boundary", text: "abcd", want: 1},
		{name: "just over boundary", text: "abcde", want: 2},
		{name: "counts runes not bytes", text: "héllo wörld!", want: 3},
		{name: "long text", text: strings.Repeat("x", 400), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, est.Estimate(tt.text))
		})
	}
}

func TestHeuristicEstimator_Monotonic(t *testing.T) {
	est := HeuristicEstimator{}

	prev := 0
	for i := 0; i <= 64; i += 4 {
		cur := est.Estimate(strings.Repeat("a", i))
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestNewTokenEstimator(t *testing.T) {
	est, err := NewTokenEstimator("heuristic")
	require.NoError(t, err)
	assert.IsType(t, HeuristicEstimator{}, est)

	est, err = NewTokenEstimator("")
	require.NoError(t, err)
	assert.IsType(t, HeuristicEstimator{}, est)
}
