// Package summarize is the boundary to external text-generation backends
// used for narrative daily entries. Callers hand it already-sanitized text
// and must sanitize whatever comes back.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrUnavailable means the backend could not produce a summary.
	ErrUnavailable = errors.New("summarize: backend unavailable")
	// ErrTimeout means the backend did not answer in time.
	ErrTimeout = errors.New("summarize: backend timed out")
)

// DefaultMaxTokens caps the generated entry length.
const DefaultMaxTokens = 4096

// Request is one generation call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Summarizer generates narrative text from a prompt.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
	Name() string
}

// Config holds backend connection settings.
type Config struct {
	Backend  string
	Model    string
	APIKey   string
	Endpoint string // overrides the backend's default base URL
	Timeout  time.Duration
}

// Constructor builds a Summarizer from cfg.
type Constructor func(cfg Config) (Summarizer, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor registered under name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown summarize backend: %s", name)
	}
	return ctor, nil
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend named by cfg.Backend and wraps it with cfg.Timeout.
func New(cfg Config) (Summarizer, error) {
	ctor, err := Get(cfg.Backend)
	if err != nil {
		return nil, err
	}
	s, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("summarize: %s: %w", cfg.Backend, err)
	}
	return WithTimeout(s, cfg.Timeout), nil
}

// WithTimeout bounds every call to s by d and maps failures onto
// ErrTimeout or ErrUnavailable. A non-positive d leaves calls unbounded
// but still maps errors.
func WithTimeout(s Summarizer, d time.Duration) Summarizer {
	return &timeoutSummarizer{inner: s, timeout: d}
}

type timeoutSummarizer struct {
	inner   Summarizer
	timeout time.Duration
}

func (t *timeoutSummarizer) Name() string { return t.inner.Name() }

func (t *timeoutSummarizer) Summarize(ctx context.Context, req Request) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	out, err := t.inner.Summarize(ctx, req)
	switch {
	case err == nil && out == "":
		return "", fmt.Errorf("%w: %s returned empty text", ErrUnavailable, t.inner.Name())
	case err == nil:
		return out, nil
	case errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable):
		return "", err
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded:
		return "", fmt.Errorf("%w: %s after %s", ErrTimeout, t.inner.Name(), t.timeout)
	default:
		return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, t.inner.Name(), err)
	}
}

// Fallback reports whether err should fall back to deterministic rendering.
func Fallback(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}
