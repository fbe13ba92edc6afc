package sanitize

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// EntropyConfig tunes the high-entropy fallback. The defaults were picked
// against the test corpus in entropy_test.go; recalibrate there.
type EntropyConfig struct {
	MinLength  int     // shortest run considered
	MinClasses int     // distinct classes among lower, upper, digit, symbol
	MinBits    float64 // Shannon entropy per character
	MaxWordLen int     // longest separator-delimited segment treated as a word
}

// DefaultEntropyConfig returns the calibrated defaults.
func DefaultEntropyConfig() EntropyConfig {
	return EntropyConfig{
		MinLength:  32,
		MinClasses: 3,
		MinBits:    4.2,
		MaxWordLen: 20,
	}
}

// EntropyPattern returns the heuristic fallback row for cfg.
func EntropyPattern(cfg EntropyConfig) Pattern {
	return Pattern{
		Name:   "high-entropy",
		Expr:   `[A-Za-z0-9+/=_-]{` + strconv.Itoa(cfg.MinLength) + `,}`,
		Class:  Heuristic,
		Label:  "HIGH-ENTROPY",
		Accept: cfg.Flags,
	}
}

// Flags reports whether s looks like an unlabeled secret.
func (cfg EntropyConfig) Flags(s string) bool {
	if len(s) < cfg.MinLength {
		return false
	}
	if charClasses(s) < cfg.MinClasses {
		return false
	}
	if cfg.MaxWordLen > 0 && wordLike(s, cfg.MaxWordLen) {
		return false
	}
	return shannonBits(s) >= cfg.MinBits
}

// shannonBits returns the per-character Shannon entropy of s.
func shannonBits(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	n := 0
	for _, r := range s {
		counts[r]++
		n++
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

func charClasses(s string) int {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	n := 0
	for _, b := range []bool{lower, upper, digit, symbol} {
		if b {
			n++
		}
	}
	return n
}

// wordLike reports whether every separator-delimited segment of s reads as
// a word: letters optionally followed by digits, or digits alone. Paths,
// identifiers and hyphenated slugs pass; base64 and random keys do not.
func wordLike(s string, maxLen int) bool {
	segs := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == '+' || r == '='
	})
	if len(segs) == 0 {
		return true
	}
	for _, seg := range segs {
		if len(seg) > maxLen || !wordSegment(seg) {
			return false
		}
	}
	return true
}

func wordSegment(seg string) bool {
	i := 0
	for i < len(seg) && isLetter(seg[i]) {
		i++
	}
	for i < len(seg) && seg[i] >= '0' && seg[i] <= '9' {
		i++
	}
	return i == len(seg)
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
