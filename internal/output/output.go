// Package output prints operator-facing reports. Every printer passes text
// through the sanitizer itself, regardless of what produced the report.
package output

import (
	"context"
	"fmt"
	"strings"
)

// Record is a report that can be printed. It is JSON-encoded as-is for
// machine output.
type Record interface {
	// Kind names the report, e.g. "compare" or "transitions".
	Kind() string
	// Text renders the report for a terminal.
	Text() string
}

// Output defines the interface for report destinations.
type Output interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// Format selects how a record is rendered.
type Format int

const (
	Text Format = iota
	JSON
)

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "text"
}

// ParseFormat maps "text" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	default:
		return Text, fmt.Errorf("output: unknown format %q", s)
	}
}
