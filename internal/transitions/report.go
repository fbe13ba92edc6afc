package transitions

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/daybook/internal/model"
)

// Describe renders "from (provider) -> to (provider)".
func Describe(t model.Transition) string {
	from := t.From
	if from == "" {
		from = "(start)"
	}
	if t.FromProvider != "" {
		from += " (" + t.FromProvider + ")"
	}
	to := t.To
	if t.Provider != "" {
		to += " (" + t.Provider + ")"
	}
	return from + " -> " + to
}

// Format renders one transition on a line.
func Format(t model.Transition) string {
	line := t.At.Format("2006-01-02 15:04:05") + "  " + Describe(t)
	if t.SessionID != "" {
		line += "  [" + t.SessionID + "]"
	}
	return line
}

// Report lists transitions for the transitions command.
type Report struct {
	Since       model.Date         `json:"since,omitzero"`
	Transitions []model.Transition `json:"transitions"`
	Stats       Stats              `json:"stats"`
}

// NewReport builds a report over ts.
func NewReport(ts []model.Transition, since model.Date) Report {
	if ts == nil {
		ts = []model.Transition{}
	}
	return Report{Since: since, Transitions: ts, Stats: ComputeStats(ts)}
}

func (Report) Kind() string { return "transitions" }

// Text renders the report.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString("Model Transitions Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	if !r.Since.IsZero() {
		fmt.Fprintf(&b, "Since: %s\n", r.Since)
	}
	b.WriteString("\n")
	if len(r.Transitions) == 0 {
		b.WriteString("No model transitions found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Total transitions: %d\n", r.Stats.Total)
	if r.Stats.MostCommonTarget != "" {
		fmt.Fprintf(&b, "Most common target: %s (%d)\n", r.Stats.MostCommonTarget, r.Stats.ByModel[r.Stats.MostCommonTarget])
	}
	b.WriteString("\n")
	for _, t := range r.Transitions {
		b.WriteString(Format(t) + "\n")
		if t.PrecedingContext != "" {
			fmt.Fprintf(&b, "    before: %q\n", t.PrecedingContext)
		}
	}
	return b.String()
}

// Export is the JSON document written by the transitions export.
type Export struct {
	RunID       string             `json:"run_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Since       model.Date         `json:"since,omitzero"`
	Count       int                `json:"count"`
	Stats       Stats              `json:"stats"`
	Transitions []model.Transition `json:"transitions"`
}

// NewExport wraps a report for export. An empty runID gets a fresh one.
func NewExport(r Report, runID string, now time.Time) Export {
	if runID == "" {
		runID = uuid.NewString()
	}
	return Export{
		RunID:       runID,
		GeneratedAt: now,
		Since:       r.Since,
		Count:       len(r.Transitions),
		Stats:       r.Stats,
		Transitions: r.Transitions,
	}
}

func (Export) Kind() string { return "transitions-export" }

func (e Export) Text() string {
	return fmt.Sprintf("exported %d transitions (run %s)", e.Count, e.RunID)
}
