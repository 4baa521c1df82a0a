package chat

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator sizes text for budget decisions. Estimates only need to be
// monotonic and stable, not to match the downstream model's tokenizer.
type TokenEstimator interface {
	Estimate(text string) int
}

// charsPerToken is the fixed character-to-token ratio of the heuristic
// estimator.
const charsPerToken = 4

// HeuristicEstimator approximates one token per four characters. Cheap and
// deterministic; empty string costs zero.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// TiktokenEstimator counts exact cl100k_base tokens. Slower than the
// heuristic; selected via TOKEN_ESTIMATOR=tiktoken.
type TiktokenEstimator struct {
	tk *tiktoken.Tiktoken
}

func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	tk, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken: %w", err)
	}
	return &TiktokenEstimator{tk: tk}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.tk.Encode(text, nil, nil))
}

// NewTokenEstimator builds the estimator named by kind; unknown values fall
// back to the heuristic.
func NewTokenEstimator(kind string) (TokenEstimator, error) {
	switch kind {
	case "tiktoken":
		return NewTiktokenEstimator()
	default:
		return HeuristicEstimator{}, nil
	}
}
