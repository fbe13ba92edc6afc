package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/crimson-sun/daybook/internal/coverage"
	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/reader"
)

// ErrNoState is returned by incremental selection when there is no usable
// watermark to compare against.
var ErrNoState = errors.New("pipeline: no prior run state; choose an explicit date range")

// Mode picks which dates a backfill considers.
type Mode int

const (
	SingleDate Mode = iota
	Today
	SinceDate
	AllMissing
	Incremental
)

func (m Mode) String() string {
	switch m {
	case SingleDate:
		return "date"
	case Today:
		return "today"
	case SinceDate:
		return "since"
	case AllMissing:
		return "all-missing"
	case Incremental:
		return "incremental"
	default:
		return "unknown"
	}
}

// Selection is one date-range choice from the caller.
type Selection struct {
	Mode          Mode
	Date          model.Date // SingleDate and SinceDate
	IncludeSparse bool       // AllMissing also regenerates sparse days
}

// resolve returns the candidate dates for sel, in date order. prev is the
// loaded run state; stateErr is whatever Load returned with it. now must
// already be in the zone events were grouped in.
func resolve(sel Selection, scan reader.Scan, report coverage.Report, activity []model.DayActivity, prev model.RunState, stateErr error, now time.Time) ([]model.Date, error) {
	switch sel.Mode {
	case SingleDate:
		if sel.Date.IsZero() {
			return nil, errors.New("pipeline: date mode needs a date")
		}
		return []model.Date{sel.Date}, nil
	case Today:
		return []model.Date{model.DateOf(now)}, nil
	case SinceDate:
		if sel.Date.IsZero() {
			return nil, errors.New("pipeline: since mode needs a date")
		}
		return coverage.DatesSince(activity, sel.Date), nil
	case AllMissing:
		return report.Dates(sel.IncludeSparse), nil
	case Incremental:
		if stateErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoState, stateErr)
		}
		if prev.IsZero() {
			return nil, ErrNoState
		}
		return coverage.ChangedDates(scan.Sessions, prev.LastRunTimestamp), nil
	default:
		return nil, fmt.Errorf("pipeline: unknown selection mode %d", sel.Mode)
	}
}
