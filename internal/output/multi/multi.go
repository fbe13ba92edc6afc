// Package multi writes each report to several outputs, typically the
// terminal and a --report-file.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/daybook/internal/output"
)

// Multi is an output.Output that tees records.
type Multi struct {
	targets []output.Output
}

// New returns a Multi over the non-nil targets, in order.
func New(targets ...output.Output) *Multi {
	m := &Multi{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

// Len is the number of targets.
func (m *Multi) Len() int { return len(m.targets) }

// Write hands rec to each target. A failing target does not stop the
// others; a cancelled context does.
func (m *Multi) Write(ctx context.Context, rec output.Record) error {
	var errs []error
	for i, t := range m.targets {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := t.Write(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("multi output %d (%s): %w", i, rec.Kind(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every target and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for i, t := range m.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("multi output %d: close: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
