// Package pipeline wires the reader, sanitizer, coverage analyzer, composer
// and state store into the operations the command line exposes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/daybook/internal/compose"
	"github.com/crimson-sun/daybook/internal/coverage"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/output"
	"github.com/crimson-sun/daybook/internal/output/file"
	"github.com/crimson-sun/daybook/internal/reader"
	"github.com/crimson-sun/daybook/internal/sanitize"
	"github.com/crimson-sun/daybook/internal/state"
	"github.com/crimson-sun/daybook/internal/transitions"
)

// Config holds the paths and thresholds a Pipeline runs with.
type Config struct {
	SessionsDir     string
	MemoryDir       string
	SparseThreshold float64
	MinValidSize    int64
}

// Pipeline runs one operation per call against a sessions directory and a
// memory directory.
type Pipeline struct {
	cfg      Config
	san      *sanitize.Sanitizer
	reader   *reader.Reader
	composer *compose.Composer
	store    *state.Store
	out      output.Output
	logger   *zap.Logger
	runID    string
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReader sets the session reader.
func WithReader(r *reader.Reader) Option {
	return func(p *Pipeline) { p.reader = r }
}

// WithComposer sets the artifact composer.
func WithComposer(c *compose.Composer) Option {
	return func(p *Pipeline) { p.composer = c }
}

// WithStore sets the run state store used by backfill.
func WithStore(s *state.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithOutput sets where reports are written. Without it reports are only
// returned.
func WithOutput(o output.Output) Option {
	return func(p *Pipeline) { p.out = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRunID tags exports with id.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. A nil sanitizer is refused: nothing runs without
// redaction.
func New(cfg Config, san *sanitize.Sanitizer, opts ...Option) (*Pipeline, error) {
	if san == nil {
		return nil, fmt.Errorf("pipeline: %w", sanitize.ErrEngine)
	}
	if cfg.SparseThreshold <= 0 {
		cfg.SparseThreshold = coverage.DefaultSparseThreshold
	}
	if cfg.MinValidSize == 0 {
		cfg.MinValidSize = coverage.DefaultMinValidSize
	}
	p := &Pipeline{
		cfg:    cfg,
		san:    san,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reader == nil {
		p.reader = reader.New(reader.WithLogger(p.logger))
	}
	if p.composer == nil {
		p.composer = compose.New(san, compose.WithLogger(p.logger))
	}
	if p.store == nil {
		p.store = state.NewStore(state.DefaultPath(), p.logger)
	}
	return p, nil
}

// Close closes the report output.
func (p *Pipeline) Close() error {
	if p.out == nil {
		return nil
	}
	return p.out.Close()
}

func (p *Pipeline) emit(ctx context.Context, rec output.Record) error {
	if p.out == nil {
		return nil
	}
	if err := p.out.Write(ctx, rec); err != nil {
		return fmt.Errorf("pipeline output: %w", err)
	}
	return nil
}

// scan reads the sessions directory and groups it by day.
func (p *Pipeline) scan(ctx context.Context) (reader.Scan, []model.DayActivity, error) {
	scan, err := p.reader.ScanDir(ctx, p.cfg.SessionsDir)
	if err != nil {
		return reader.Scan{}, nil, fmt.Errorf("pipeline scan: %w", err)
	}
	activity := coverage.Group(scan.Events, scan.Compactions)
	p.logger.Debug("activity grouped",
		zap.Int("files", scan.Stats.Files),
		zap.Int("events", len(scan.Events)),
		zap.Int("days", len(activity)),
	)
	return scan, activity, nil
}

func (p *Pipeline) analyze(activity []model.DayActivity) (coverage.Report, []coverage.Artifact, error) {
	arts, err := coverage.ListArtifacts(p.cfg.MemoryDir)
	if err != nil {
		return coverage.Report{}, nil, fmt.Errorf("pipeline artifacts: %w", err)
	}
	return coverage.Analyze(activity, coverage.NewIndex(arts), p.cfg.SparseThreshold), arts, nil
}

// Compare reports which active days lack an adequate artifact.
func (p *Pipeline) Compare(ctx context.Context) (coverage.Report, error) {
	_, activity, err := p.scan(ctx)
	if err != nil {
		return coverage.Report{}, err
	}
	report, _, err := p.analyze(activity)
	if err != nil {
		return coverage.Report{}, err
	}
	report.AttachPreviews(p.san)
	p.logger.Info("compare",
		zap.Int("active_days", report.TotalActiveDays),
		zap.Int("missing", len(report.Missing)),
		zap.Int("sparse", len(report.Sparse)),
		zap.Float64("coverage_percent", report.CoveragePercent),
	)
	return report, p.emit(ctx, report)
}

// Transitions lists model transitions on or after since; a zero since
// lists all of them.
func (p *Pipeline) Transitions(ctx context.Context, since model.Date) (transitions.Report, error) {
	scan, err := p.reader.ScanDir(ctx, p.cfg.SessionsDir)
	if err != nil {
		return transitions.Report{}, fmt.Errorf("pipeline scan: %w", err)
	}
	ts := transitions.Collect(transitions.Since(transitions.Extract(scan.Events, p.san), since))
	report := transitions.NewReport(ts, since)
	return report, p.emit(ctx, report)
}

// ExportTransitions writes r as a JSON document to path, keeping up to
// backups previous exports.
func (p *Pipeline) ExportTransitions(ctx context.Context, r transitions.Report, path string, backups int) (transitions.Export, error) {
	exp := transitions.NewExport(r, p.runID, p.now())
	out := file.New(path, p.san, file.WithBackups(backups))
	if err := out.Write(ctx, exp); err != nil {
		return exp, fmt.Errorf("pipeline export: %w", err)
	}
	if err := out.Close(); err != nil {
		return exp, fmt.Errorf("pipeline export: %w", err)
	}
	p.logger.Info("transitions exported", zap.String("path", path), zap.Int("count", exp.Count))
	return exp, p.emit(ctx, exp)
}

// Validate checks every artifact in the memory directory.
func (p *Pipeline) Validate(ctx context.Context) (coverage.Validation, error) {
	_, activity, err := p.scan(ctx)
	if err != nil {
		return coverage.Validation{}, err
	}
	active := make(map[model.Date]bool, len(activity))
	for _, a := range activity {
		active[a.Date] = true
	}
	v := coverage.Validate(p.cfg.MemoryDir, active, p.cfg.MinValidSize)
	return v, p.emit(ctx, v)
}

// Stats summarizes the session logs and the artifacts.
func (p *Pipeline) Stats(ctx context.Context) (coverage.Stats, error) {
	scan, activity, err := p.scan(ctx)
	if err != nil {
		return coverage.Stats{}, err
	}
	arts, err := coverage.ListArtifacts(p.cfg.MemoryDir)
	if err != nil {
		return coverage.Stats{}, fmt.Errorf("pipeline artifacts: %w", err)
	}
	ss := coverage.SessionStatsOf(scan)
	for range transitions.Extract(scan.Events, p.san) {
		ss.Transitions++
	}
	st := coverage.Stats{
		Sessions:  ss,
		Artifacts: coverage.ArtifactStatsOf(arts, activity, p.cfg.SparseThreshold),
	}
	return st, p.emit(ctx, st)
}
