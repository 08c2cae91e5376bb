package orchestrator

import "unicode/utf8"

// EstimateTokens approximates the token count of s (rough: ~4 chars
// per token). Non-empty strings estimate to at least one token.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len(s) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// TruncateToTokens cuts s so its estimate is at most n tokens. The cut
// lands on a rune boundary.
func TruncateToTokens(s string, n int) string {
	if n <= 0 {
		return ""
	}
	limit := n * 4
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
