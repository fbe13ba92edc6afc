package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/daybook/internal/output"
)

// Output prints sanitized reports to a terminal stream.
type Output struct {
	w      io.Writer
	format output.Format
	san    output.Sanitizer
}

// New creates an Output writing to w, or os.Stdout when w is nil.
func New(w io.Writer, format output.Format, san output.Sanitizer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{w: w, format: format, san: san}
}

func (o *Output) Write(_ context.Context, rec output.Record) error {
	data, err := output.Render(rec, o.format, o.san)
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
