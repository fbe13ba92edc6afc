package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/crimson-sun/daybook/internal/compose"
	"github.com/crimson-sun/daybook/internal/coverage"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/sanitize"
	"github.com/crimson-sun/daybook/internal/state"
	"github.com/crimson-sun/daybook/internal/transitions"
)

// Failure is a date whose artifact could not be written.
type Failure struct {
	Date  model.Date `json:"date"`
	Error string     `json:"error"`
}

// BackfillReport is the outcome of one backfill run.
type BackfillReport struct {
	Mode       string           `json:"mode"`
	DryRun     bool             `json:"dry_run"`
	Candidates []model.Date     `json:"candidates"`
	Results    []compose.Result `json:"results"`
	Idle       []model.Date     `json:"idle,omitempty"` // candidates with no activity
	Failures   []Failure        `json:"failures,omitempty"`
	StateSaved bool             `json:"state_saved"`
}

func (BackfillReport) Kind() string { return "backfill" }

// Count returns how many results ended with action a.
func (r BackfillReport) Count(a compose.Action) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}
	return n
}

func (r BackfillReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backfill (%s)", r.Mode)
	if r.DryRun {
		b.WriteString(" [dry run]")
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	if len(r.Candidates) == 0 {
		b.WriteString("No dates to process.\n")
	}
	for _, res := range r.Results {
		fmt.Fprintf(&b, "  %s: %s", res.Date, res.Action)
		if res.Action != compose.Skipped {
			fmt.Fprintf(&b, ", %d messages, %d bytes", res.Messages, res.Bytes)
		}
		if res.Narrative {
			b.WriteString(", narrative")
		}
		b.WriteString("\n")
		if res.Warning != "" {
			fmt.Fprintf(&b, "      warning: %s\n", res.Warning)
		}
	}
	for _, d := range r.Idle {
		fmt.Fprintf(&b, "  %s: no session activity\n", d)
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s: failed: %s\n", f.Date, f.Error)
	}
	fmt.Fprintf(&b, "\nCreated %d, overwritten %d, preserved %d, skipped %d, failed %d\n",
		r.Count(compose.Created), r.Count(compose.Overwritten), r.Count(compose.Preserved),
		r.Count(compose.Skipped), len(r.Failures))
	if r.StateSaved {
		b.WriteString("Run state updated.\n")
	}
	return b.String()
}

// Backfill writes artifacts for the dates sel picks. Existing artifacts are
// skipped unless opts asks to overwrite or preserve them. A failed date does
// not stop the others; their errors come back joined. The run state moves
// forward only when a non-dry run finishes with no failures.
func (p *Pipeline) Backfill(ctx context.Context, sel Selection, opts compose.Options) (BackfillReport, error) {
	runAt := p.now()
	report := BackfillReport{Mode: sel.Mode.String(), DryRun: opts.DryRun}

	prev, stateErr := p.store.Load()
	if stateErr != nil {
		p.logger.Warn("run state unusable", zap.String("path", p.store.Path()), zap.Error(stateErr))
	}

	scan, activity, err := p.scan(ctx)
	if err != nil {
		return report, err
	}
	gaps, _, err := p.analyze(activity)
	if err != nil {
		return report, err
	}
	dates, err := resolve(sel, scan, gaps, activity, prev, stateErr, runAt.In(p.reader.Location()))
	if err != nil {
		return report, err
	}
	report.Candidates = dates

	all := transitions.Collect(transitions.Extract(scan.Events, p.san))
	var (
		errs      []error
		processed []model.Date
	)
	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		act, ok := coverage.Find(activity, d)
		if !ok {
			report.Idle = append(report.Idle, d)
			continue
		}
		ts := transitions.Collect(transitions.OnDate(slices.Values(all), d))
		res, err := p.composer.Write(ctx, p.cfg.MemoryDir, act, ts, opts)
		switch {
		case err == nil:
			report.Results = append(report.Results, res)
			if res.Action != compose.DryRun {
				processed = append(processed, d)
			}
			if res.Warning != "" {
				p.logger.Warn("narrative fallback", zap.Stringer("date", d), zap.String("warning", res.Warning))
			}
		case errors.Is(err, compose.ErrArtifactExists):
			report.Results = append(report.Results, res)
			p.logger.Info("artifact exists, skipped", zap.Stringer("date", d))
		case errors.Is(err, sanitize.ErrLeak), errors.Is(err, sanitize.ErrEngine):
			return report, fmt.Errorf("pipeline backfill %s: %w", d, err)
		case ctx.Err() != nil:
			return report, ctx.Err()
		default:
			report.Failures = append(report.Failures, Failure{Date: d, Error: err.Error()})
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
			p.logger.Error("backfill date failed", zap.Stringer("date", d), zap.Error(err))
		}
	}

	if !opts.DryRun && len(errs) == 0 {
		next := state.Advance(prev, runAt, processed)
		if err := p.store.Save(next); err != nil {
			errs = append(errs, fmt.Errorf("pipeline state: %w", err))
		} else {
			report.StateSaved = true
		}
	}

	if emitErr := p.emit(ctx, report); emitErr != nil {
		errs = append(errs, emitErr)
	}
	return report, errors.Join(errs...)
}
