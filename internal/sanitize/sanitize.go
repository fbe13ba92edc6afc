// Package sanitize redacts secret-shaped substrings from free text.
//
// A Sanitizer evaluates an ordered table of Patterns with a single generic
// engine. Each match is replaced by its label before the next pattern runs,
// so a secret is labeled by the most specific rule that recognizes it.
// Labels emitted by the table are never matched again, and the table is
// applied until the text stops changing, which makes Sanitize idempotent.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrEngine is returned when the pattern table cannot be compiled. Callers
// must treat it as fatal: nothing may be written unsanitized.
var ErrEngine = errors.New("sanitize: pattern engine unavailable")

// maxPasses bounds the fixed-point loop. Every effective replacement moves
// at least one character into a protected label, so the loop converges well
// before this.
const maxPasses = 16

type rule struct {
	Pattern
	re   *regexp.Regexp
	tmpl string
}

// Sanitizer applies a compiled pattern table. Safe for concurrent use.
type Sanitizer struct {
	rules  []rule
	labels *regexp.Regexp // labels emitted by this table only
	logger *zap.Logger
}

type options struct {
	patterns []Pattern
	entropy  EntropyConfig
	logger   *zap.Logger
}

// Option configures a Sanitizer.
type Option func(*options)

// WithPatterns replaces the built-in table. The entropy fallback is still
// appended last.
func WithPatterns(p []Pattern) Option {
	return func(o *options) { o.patterns = p }
}

// WithEntropy sets the high-entropy fallback parameters.
func WithEntropy(cfg EntropyConfig) Option {
	return func(o *options) { o.entropy = cfg }
}

// WithLogger sets the logger used for redaction counts.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New compiles the pattern table. Any compile failure is reported as
// ErrEngine.
func New(opts ...Option) (*Sanitizer, error) {
	o := options{
		patterns: DefaultPatterns(),
		entropy:  DefaultEntropyConfig(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.entropy.MinLength <= 0 {
		return nil, fmt.Errorf("%w: entropy min length must be positive", ErrEngine)
	}

	table := make([]Pattern, 0, len(o.patterns)+1)
	table = append(table, o.patterns...)
	table = append(table, EntropyPattern(o.entropy))
	// Stable: table order is preserved within a class.
	sort.SliceStable(table, func(i, j int) bool { return table[i].Class < table[j].Class })

	rules := make([]rule, 0, len(table))
	seen := make(map[string]bool)
	var alts []string
	for _, p := range table {
		if p.Label == "" {
			return nil, fmt.Errorf("%w: pattern %q has no label", ErrEngine, p.Name)
		}
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", ErrEngine, p.Name, err)
		}
		rules = append(rules, rule{
			Pattern: p,
			re:      re,
			tmpl:    p.Prefix + escapeTemplate(p.Replacement()) + p.Suffix,
		})
		if !seen[p.Label] {
			seen[p.Label] = true
			alts = append(alts, regexp.QuoteMeta(p.Replacement()))
		}
	}
	labels, err := regexp.Compile(strings.Join(alts, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: label set: %v", ErrEngine, err)
	}
	return &Sanitizer{rules: rules, labels: labels, logger: o.logger}, nil
}

// Patterns returns the effective table in evaluation order.
func (s *Sanitizer) Patterns() []Pattern {
	out := make([]Pattern, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Pattern
	}
	return out
}

// Sanitize returns text with every secret-shaped span replaced by its label.
// Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}
	out := text
	for pass := 0; pass < maxPasses; pass++ {
		next := out
		for i := range s.rules {
			next = s.apply(&s.rules[i], next)
		}
		if next == out {
			break
		}
		out = next
	}
	if out != text {
		s.logger.Debug("redacted content",
			zap.Int("labels", len(s.labels.FindAllStringIndex(out, -1))),
			zap.Int("bytes_in", len(text)),
			zap.Int("bytes_out", len(out)))
	}
	return out
}

func (s *Sanitizer) apply(r *rule, text string) string {
	return s.outsideLabels(text, func(seg string) string {
		if r.Accept == nil {
			return r.re.ReplaceAllString(seg, r.tmpl)
		}
		return r.re.ReplaceAllStringFunc(seg, func(m string) string {
			if !r.Accept(m) {
				return m
			}
			return r.re.ReplaceAllString(m, r.tmpl)
		})
	})
}

// outsideLabels applies fn to each span of text that is not an existing
// redaction label and reassembles the result.
func (s *Sanitizer) outsideLabels(text string, fn func(string) string) string {
	locs := s.labels.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return fn(text)
	}
	var out []byte
	prev := 0
	for _, loc := range locs {
		out = append(out, fn(text[prev:loc[0]])...)
		out = append(out, text[loc[0]:loc[1]]...)
		prev = loc[1]
	}
	out = append(out, fn(text[prev:])...)
	return string(out)
}

// forEachMatch calls fn for every match of r outside existing labels.
func (s *Sanitizer) forEachMatch(r *rule, text string, fn func(m string)) {
	s.outsideLabels(text, func(seg string) string {
		for _, m := range r.re.FindAllString(seg, -1) {
			if r.Accept == nil || r.Accept(m) {
				fn(m)
			}
		}
		return seg
	})
}

func escapeTemplate(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			out = append(out, '$')
		}
		out = append(out, s[i])
	}
	return string(out)
}
