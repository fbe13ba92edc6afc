package compose

import (
	"math"
	"strings"
	"unicode/utf8"
)

// truncate cuts s to maxLen runes and marks the cut with suffix.
func truncate(s string, maxLen int, suffix string) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + suffix
}

// firstLine returns the first non-blank line of s, collapsed and cut at a
// word boundary near maxLen runes.
func firstLine(s string, maxLen int) string {
	line := ""
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	line = strings.Join(strings.Fields(line), " ")
	if utf8.RuneCountInString(line) <= maxLen {
		return line
	}
	r := []rune(line)[:maxLen]
	if i := lastSpace(r); i > maxLen/2 {
		r = r[:i]
	}
	return string(r) + "..."
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}

// EstimateTokens returns an approximate token count using a whitespace heuristic.
// Splits on whitespace, applies a 1.3x subword expansion factor (rounded up).
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	words := len(strings.Fields(s))
	return int(math.Ceil(float64(words) * 1.3))
}

// normalizeKey folds a prompt for near-duplicate comparison.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimRight(s, ".!? ")
}
