package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntropyFlags(t *testing.T) {
	cfg := DefaultEntropyConfig()
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"random key", "Xk9mQ2pL7vR4tN8wZ1yB6cF3hJ5sD0gAe7Ku", true},
		{"base64 blob", "aGVsbG8gd29ybGQgdGhpcyBpcyBiYXNlNjQgZW5jb2RlZA==", true},
		{"short", "Xk9mQ2pL7vR4tN8w", false},
		{"path", "internal/sanitize/entropy_test/HelperFunc2", false},
		{"git sha", "3f786850e387550fdab836ed7e6dc881de23001b", false},
		{"repetitive", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1A", false},
		{"slug", "getting-started-with-the-session-reader", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Flags(tt.in))
		})
	}
}

func TestEntropyTunable(t *testing.T) {
	key := "Xk9mQ2pL7vR4tN8wZ1yB6cF3hJ5sD0gAe7Ku"

	strict := DefaultEntropyConfig()
	strict.MinClasses = 4
	assert.False(t, strict.Flags(key))

	long := DefaultEntropyConfig()
	long.MinLength = 64
	s := newSanitizer(t, WithEntropy(long))
	assert.Equal(t, "blob "+key, s.Sanitize("blob "+key))

	s = newSanitizer(t)
	assert.Equal(t, "blob [REDACTED-HIGH-ENTROPY]", s.Sanitize("blob "+key))
}

func TestShannonBits(t *testing.T) {
	assert.Zero(t, shannonBits(""))
	assert.Zero(t, shannonBits("aaaa"))
	assert.InDelta(t, 1.0, shannonBits("abab"), 1e-9)
	assert.InDelta(t, 2.0, shannonBits("abcd"), 1e-9)
}

func TestWordLike(t *testing.T) {
	assert.True(t, wordLike("node_modules/eslint-plugin/dist", 20))
	assert.True(t, wordLike("v2/api/items2", 20))
	assert.False(t, wordLike("a1b2c3", 20))
	assert.False(t, wordLike("averyveryverylongsegmentname", 20))
}
