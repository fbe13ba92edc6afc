package multi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crimson-sun/daybook/internal/output"
)

type note string

func (note) Kind() string { return "note" }
func (n note) Text() string { return string(n) }

type sink struct {
	texts  []string
	closed bool
	err    error
}

func (s *sink) Write(_ context.Context, rec output.Record) error {
	s.texts = append(s.texts, rec.Text())
	return s.err
}

func (s *sink) Close() error {
	s.closed = true
	return s.err
}

func TestWriteReachesEveryTarget(t *testing.T) {
	a, b := &sink{}, &sink{}
	m := New(a, nil, b)
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	if err := m.Write(context.Background(), note("gaps")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range []*sink{a, b} {
		if len(s.texts) != 1 || s.texts[0] != "gaps" {
			t.Errorf("target %d got %v", i, s.texts)
		}
	}
}

func TestFailingTargetDoesNotBlockOthers(t *testing.T) {
	diskFull := errors.New("disk full")
	bad, good := &sink{err: diskFull}, &sink{}
	m := New(bad, good)

	err := m.Write(context.Background(), note("x"))
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped disk full, got %v", err)
	}
	if !strings.Contains(err.Error(), "multi output 0 (note)") {
		t.Errorf("error lacks target context: %v", err)
	}
	if len(good.texts) != 1 {
		t.Fatalf("healthy target got %d records, want 1", len(good.texts))
	}
}

func TestWriteStopsWhenCancelled(t *testing.T) {
	a := &sink{}
	m := New(a)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Write(ctx, note("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(a.texts) != 0 {
		t.Fatalf("cancelled write reached target: %v", a.texts)
	}
}

func TestCloseClosesAll(t *testing.T) {
	errA := errors.New("err-a")
	a, b := &sink{err: errA}, &sink{}

	err := New(a, b).Close()
	if !errors.Is(err, errA) || !strings.Contains(err.Error(), "multi output 0: close") {
		t.Fatalf("Close error = %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("every target should be closed even when one fails")
	}
}
