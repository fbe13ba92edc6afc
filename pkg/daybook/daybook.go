package daybook

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/daybook/internal/compose"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/pipeline"
	"github.com/crimson-sun/daybook/internal/reader"
	"github.com/crimson-sun/daybook/internal/sanitize"
	"github.com/crimson-sun/daybook/internal/state"
	"github.com/crimson-sun/daybook/internal/summarize"

	// Register summarizer backends.
	_ "github.com/crimson-sun/daybook/internal/summarize/anthropic"
	_ "github.com/crimson-sun/daybook/internal/summarize/gemini"
	_ "github.com/crimson-sun/daybook/internal/summarize/openai"
)

// ErrNoState is returned by an Incremental backfill when no earlier run
// was recorded or the state file is unreadable.
var ErrNoState = pipeline.ErrNoState

// Daybook reads session logs and maintains a directory of daily memory
// files.
type Daybook struct {
	san      *sanitize.Sanitizer
	pipeline *pipeline.Pipeline
}

// New creates a Daybook. It fails when the sanitizer cannot be built or a
// summarizer backend cannot be created.
func New(opts ...Option) (*Daybook, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sessionsDir == "" || o.memoryDir == "" {
		return nil, errors.New("daybook: sessions and memory directories are required")
	}

	san, err := sanitize.New(sanitize.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("daybook: %w", err)
	}

	composeOpts := []compose.Option{compose.WithLogger(o.logger)}
	if o.backend != "" && o.backend != "none" {
		s, err := summarize.New(summarize.Config{
			Backend: o.backend,
			Model:   o.model,
			APIKey:  o.apiKey,
			Timeout: o.timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("daybook: %w", err)
		}
		composeOpts = append(composeOpts, compose.WithSummarizer(s))
	}

	stateFile := o.stateFile
	if stateFile == "" {
		stateFile = state.DefaultPath()
	}

	p, err := pipeline.New(pipeline.Config{
		SessionsDir:     o.sessionsDir,
		MemoryDir:       o.memoryDir,
		SparseThreshold: o.sparseThreshold,
		MinValidSize:    o.minValidSize,
	}, san,
		pipeline.WithReader(reader.New(
			reader.WithLogger(o.logger),
			reader.WithLocation(o.location),
			reader.WithWorkers(o.workers),
		)),
		pipeline.WithComposer(compose.New(san, composeOpts...)),
		pipeline.WithStore(state.NewStore(stateFile, o.logger)),
		pipeline.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("daybook: %w", err)
	}
	return &Daybook{san: san, pipeline: p}, nil
}

// Sanitize redacts every secret-shaped span in text. It is idempotent.
func (d *Daybook) Sanitize(text string) string {
	return d.san.Sanitize(text)
}

// Compare reports which active days lack an adequate memory file.
func (d *Daybook) Compare(ctx context.Context) (Coverage, error) {
	r, err := d.pipeline.Compare(ctx)
	if err != nil {
		return Coverage{}, err
	}
	return Coverage{
		ActiveDays:  r.TotalActiveDays,
		CoveredDays: r.CoveredDays,
		Percent:     r.CoveragePercent,
		Missing:     gapsFromModel(r.Missing),
		Sparse:      gapsFromModel(r.Sparse),
	}, nil
}

// Backfill writes memory files for the dates in r. Dates that fail are
// listed in the result and their errors joined into the returned error;
// the other dates are still written.
func (d *Daybook) Backfill(ctx context.Context, r Range, w WriteOptions) (BackfillResult, error) {
	sel, err := r.selection()
	if err != nil {
		return BackfillResult{}, err
	}
	opts := compose.Options{Preserve: w.Preserve, Overwrite: w.Overwrite, DryRun: w.DryRun}
	if w.Narrative {
		opts.Mode = compose.Narrative
	}
	rep, err := d.pipeline.Backfill(ctx, sel, opts)

	res := BackfillResult{
		Created:     rep.Count(compose.Created),
		Overwritten: rep.Count(compose.Overwritten),
		Preserved:   rep.Count(compose.Preserved),
		Skipped:     rep.Count(compose.Skipped),
	}
	for _, dt := range rep.Candidates {
		res.Dates = append(res.Dates, dt.String())
	}
	for _, rr := range rep.Results {
		if rr.Warning == "" {
			continue
		}
		if res.Warnings == nil {
			res.Warnings = make(map[string]string)
		}
		res.Warnings[rr.Date.String()] = rr.Warning
	}
	for _, f := range rep.Failures {
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		res.Failed[f.Date.String()] = f.Error
	}
	return res, err
}

// Transitions lists model switches on or after since (YYYY-MM-DD). An empty
// since lists all of them.
func (d *Daybook) Transitions(ctx context.Context, since string) ([]Transition, error) {
	var from model.Date
	if since != "" {
		var err error
		if from, err = model.ParseDate(since); err != nil {
			return nil, fmt.Errorf("daybook: %w", err)
		}
	}
	r, err := d.pipeline.Transitions(ctx, from)
	if err != nil {
		return nil, err
	}
	out := make([]Transition, len(r.Transitions))
	for i, t := range r.Transitions {
		out[i] = Transition{
			From:      t.From,
			To:        t.To,
			Provider:  t.Provider,
			At:        t.At,
			SessionID: t.SessionID,
			Context:   t.PrecedingContext,
		}
	}
	return out, nil
}

func (r Range) selection() (pipeline.Selection, error) {
	sel := pipeline.Selection{IncludeSparse: r.includeSparse}
	switch r.mode {
	case "date":
		sel.Mode = pipeline.SingleDate
	case "today":
		sel.Mode = pipeline.Today
	case "since":
		sel.Mode = pipeline.SinceDate
	case "all-missing":
		sel.Mode = pipeline.AllMissing
	case "incremental":
		sel.Mode = pipeline.Incremental
	default:
		return sel, errors.New("daybook: empty range; use OnDate, Today, Since, AllMissing or Incremental")
	}
	if r.date != "" {
		dt, err := model.ParseDate(r.date)
		if err != nil {
			return sel, fmt.Errorf("daybook: %w", err)
		}
		sel.Date = dt
	}
	return sel, nil
}

// gapsFromModel converts internal gaps to the public Gap type.
func gapsFromModel(gaps []model.Gap) []Gap {
	out := make([]Gap, len(gaps))
	for i, g := range gaps {
		out[i] = Gap{
			Date:      g.Activity.Date.String(),
			Status:    g.Status.String(),
			Messages:  g.Activity.MessageCount,
			SizeBytes: g.SizeBytes,
			Models:    g.Activity.ModelsUsed,
			Preview:   g.Preview,
		}
	}
	return out
}
