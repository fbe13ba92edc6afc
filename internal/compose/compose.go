// Package compose renders a day's activity into a markdown artifact and
// merges it with whatever was hand-written below the footer of the
// previous version.
package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/crimson-sun/daybook/internal/coverage"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/output/file"
	"github.com/crimson-sun/daybook/internal/summarize"
)

// ErrArtifactExists is returned when the target artifact exists and neither
// overwrite nor preserve was requested.
var ErrArtifactExists = errors.New("compose: artifact already exists")

// Sanitizer redacts text and validates generated output.
type Sanitizer interface {
	Sanitize(text string) string
	SafeSanitize(text string) (string, error)
}

// Mode selects how the generated region is produced.
type Mode int

const (
	Template  Mode = iota // deterministic sections
	Narrative             // summarizer-written entry, template on failure
)

func (m Mode) String() string {
	if m == Narrative {
		return "narrative"
	}
	return "template"
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "template":
		return Template, nil
	case "narrative":
		return Narrative, nil
	default:
		return Template, fmt.Errorf("unknown compose mode: %q", s)
	}
}

// Options controls one artifact write.
type Options struct {
	Mode      Mode
	Preserve  bool // carry the region after the footer forward
	Overwrite bool // replace an existing artifact
	DryRun    bool // compose but do not write
}

// Action is what happened to an artifact.
type Action string

const (
	Created     Action = "created"
	Overwritten Action = "overwritten"
	Preserved   Action = "preserved"
	Skipped     Action = "skipped"
	DryRun      Action = "dry-run"
)

// Result describes one artifact write.
type Result struct {
	Date      model.Date `json:"date"`
	Path      string     `json:"path"`
	Action    Action     `json:"action"`
	Messages  int        `json:"messages"`
	Bytes     int        `json:"bytes"`
	Narrative bool       `json:"narrative"`
	Warning   string     `json:"warning,omitempty"`
}

// Composer renders artifacts.
type Composer struct {
	san           Sanitizer
	summarizer    summarize.Summarizer
	logger        *zap.Logger
	maxInputChars int
	perm          os.FileMode
}

// Option configures a Composer.
type Option func(*Composer)

// WithSummarizer enables narrative mode.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(c *Composer) { c.summarizer = s }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = l }
}

// WithMaxInputChars caps the conversation text sent to the summarizer.
func WithMaxInputChars(n int) Option {
	return func(c *Composer) { c.maxInputChars = n }
}

// New creates a Composer. san is required.
func New(san Sanitizer, opts ...Option) *Composer {
	c := &Composer{
		san:           san,
		logger:        zap.NewNop(),
		maxInputChars: DefaultMaxInputChars,
		perm:          0o644,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the full artifact for day. preserved is appended verbatim
// after the footer. The generated region passes SafeSanitize; an error
// from it means the artifact must not be written. warning is set when
// narrative mode fell back to the template, which happens for the
// summarize.ErrTimeout and summarize.ErrUnavailable failures. Any other
// summarizer error is returned.
func (c *Composer) Compose(ctx context.Context, day model.DayActivity, ts []model.Transition, preserved string, mode Mode) (doc string, narrative bool, warning string, err error) {
	generated := ""
	if mode == Narrative {
		if c.summarizer == nil {
			warning = "no summarizer configured, used template"
		} else {
			generated, err = c.narrative(ctx, day, ts, preserved)
			switch {
			case err == nil:
				narrative = true
			case ctx.Err() != nil:
				return "", false, "", ctx.Err()
			case !summarize.Fallback(err):
				return "", false, "", fmt.Errorf("compose %s: narrative: %w", day.Date, err)
			default:
				warning = fmt.Sprintf("summarizer failed, used template: %v", err)
				c.logger.Warn("narrative fallback",
					zap.Stringer("date", day.Date),
					zap.String("backend", c.summarizer.Name()),
					zap.Error(err),
				)
				err = nil
			}
		}
	}
	if generated == "" {
		generated = c.Render(day, ts)
	}

	generated, err = c.san.SafeSanitize(generated)
	if err != nil {
		return "", false, "", fmt.Errorf("compose %s: %w", day.Date, err)
	}
	return Merge(generated, preserved), narrative, warning, nil
}

// narrative asks the summarizer for the entry and frames it with the header,
// marker line and footer. The reply is sanitized before anything else
// touches it.
func (c *Composer) narrative(ctx context.Context, day model.DayActivity, ts []model.Transition, existing string) (string, error) {
	req := c.Prompt(day, ts, existing)
	c.logger.Debug("summarizing",
		zap.Stringer("date", day.Date),
		zap.Int("prompt_tokens", EstimateTokens(req.Prompt)),
	)
	out, err := c.summarizer.Summarize(ctx, req)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(defuse(c.san.Sanitize(out)))
	if first, rest, ok := strings.Cut(body, "\n"); ok && strings.TrimSpace(first) == Header(day.Date) {
		body = strings.TrimSpace(rest)
	} else if strings.TrimSpace(body) == Header(day.Date) {
		body = ""
	}
	if body == "" {
		return "", fmt.Errorf("%w: empty entry", summarize.ErrUnavailable)
	}
	var b strings.Builder
	b.WriteString(Header(day.Date) + "\n\n")
	b.WriteString(GeneratedLine(day.MessageCount) + "\n\n")
	b.WriteString(body + "\n")
	b.WriteString("\n---\n\n" + FooterMarker + "\n")
	return b.String(), nil
}

// Write composes day's artifact into dir. An existing artifact is only
// replaced when opts.Overwrite or opts.Preserve is set; otherwise it is
// left untouched and ErrArtifactExists comes back with a Skipped result.
func (c *Composer) Write(ctx context.Context, dir string, day model.DayActivity, ts []model.Transition, opts Options) (Result, error) {
	path := filepath.Join(dir, coverage.Name(day.Date))
	res := Result{Date: day.Date, Path: path, Messages: day.MessageCount}

	existing, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return res, fmt.Errorf("compose: read %s: %w", path, err)
	}
	if exists && !opts.Overwrite && !opts.Preserve {
		res.Action = Skipped
		return res, fmt.Errorf("%w: %s", ErrArtifactExists, path)
	}

	preserved := ""
	if exists && opts.Preserve {
		_, preserved, _ = Split(string(existing))
	}

	doc, narrative, warning, err := c.Compose(ctx, day, ts, preserved, opts.Mode)
	if err != nil {
		return res, err
	}
	res.Bytes = len(doc)
	res.Narrative = narrative
	res.Warning = warning

	switch {
	case opts.DryRun:
		res.Action = DryRun
		return res, nil
	case exists && opts.Preserve:
		res.Action = Preserved
	case exists:
		res.Action = Overwritten
	default:
		res.Action = Created
	}
	if err := file.WriteAtomic(path, []byte(doc), c.perm); err != nil {
		return res, fmt.Errorf("compose: %w", err)
	}
	c.logger.Info("artifact written",
		zap.Stringer("date", day.Date),
		zap.String("action", string(res.Action)),
		zap.Int("bytes", res.Bytes),
		zap.Bool("narrative", narrative),
	)
	return res, nil
}
