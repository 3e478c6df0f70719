package domain

// EstimateTokens estimates the model token cost of a string using the
// fixed heuristic of four characters per token. Every non-empty string
// costs at least one token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
