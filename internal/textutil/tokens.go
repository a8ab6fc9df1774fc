package textutil

import "unicode/utf8"

// DefaultCharsPerToken is the average characters per token used by the heuristic
const DefaultCharsPerToken = 4

// TokenEstimator approximates how many tokens an embedding model sees in a text.
// Results are only meant for budget comparisons.
type TokenEstimator interface {
	Estimate(text string) int
}

// HeuristicEstimator counts ceil(runes / CharsPerToken)
type HeuristicEstimator struct {
	CharsPerToken int
}

// Estimate implements TokenEstimator
func (h HeuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	per := h.CharsPerToken
	if per <= 0 {
		per = DefaultCharsPerToken
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per
}

// DefaultEstimator is used when callers do not supply their own
var DefaultEstimator TokenEstimator = HeuristicEstimator{CharsPerToken: DefaultCharsPerToken}

// EstimateTokens estimates tokens with DefaultEstimator
func EstimateTokens(text string) int {
	return DefaultEstimator.Estimate(text)
}
