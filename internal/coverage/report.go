package coverage

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/daybook/internal/model"
)

// Sanitizer redacts text before it is shown.
type Sanitizer interface {
	Sanitize(text string) string
}

const previewLen = 80

// AttachPreviews sets each gap's Preview to a sanitized excerpt of the
// day's first user message.
func (r *Report) AttachPreviews(san Sanitizer) {
	for _, gaps := range [][]model.Gap{r.Missing, r.Sparse} {
		for i := range gaps {
			gaps[i].Preview = preview(gaps[i].Activity, san)
		}
	}
}

func preview(act model.DayActivity, san Sanitizer) string {
	for _, ev := range act.Events {
		if ev.Role != model.RoleUser || strings.TrimSpace(ev.RawContent) == "" {
			continue
		}
		text := strings.Join(strings.Fields(san.Sanitize(ev.RawContent)), " ")
		return excerpt(text, previewLen)
	}
	return ""
}

// excerpt truncates s to max runes, appending "..." when cut.
func excerpt(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func (Report) Kind() string { return "compare" }

type gapView struct {
	Date      model.Date `json:"date"`
	Status    string     `json:"status"`
	Messages  int        `json:"messages"`
	SizeBytes int64      `json:"size_bytes,omitempty"`
	Models    []string   `json:"models,omitempty"`
	Sessions  []string   `json:"sessions,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Preview   string     `json:"preview,omitempty"`
}

func viewGaps(gaps []model.Gap) []gapView {
	out := make([]gapView, len(gaps))
	for i, g := range gaps {
		out[i] = gapView{
			Date:      g.Activity.Date,
			Status:    g.Status.String(),
			Messages:  g.Activity.MessageCount,
			SizeBytes: g.SizeBytes,
			Models:    g.Activity.ModelsUsed,
			Sessions:  g.Activity.SessionIDs,
			Reason:    g.Reason,
			Preview:   g.Preview,
		}
	}
	return out
}

// MarshalJSON encodes a summary of r without raw event content.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalActiveDays int          `json:"total_active_days"`
		CoveredDays     int          `json:"covered_days"`
		CoveragePercent float64      `json:"coverage_percent"`
		SparseThreshold float64      `json:"sparse_threshold"`
		Missing         []gapView    `json:"missing"`
		Sparse          []gapView    `json:"sparse"`
		Orphaned        []Artifact   `json:"orphaned"`
		Covered         []model.Date `json:"covered"`
	}{
		TotalActiveDays: r.TotalActiveDays,
		CoveredDays:     r.CoveredDays,
		CoveragePercent: r.CoveragePercent,
		SparseThreshold: r.SparseThreshold,
		Missing:         viewGaps(r.Missing),
		Sparse:          viewGaps(r.Sparse),
		Orphaned:        r.Orphaned,
		Covered:         r.Covered,
	})
}

// Text renders r as the compare report.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString("Coverage Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Active days: %d\n", r.TotalActiveDays)
	fmt.Fprintf(&b, "Covered days: %d\n", r.CoveredDays)
	fmt.Fprintf(&b, "Coverage: %.1f%%\n\n", r.CoveragePercent)

	if len(r.Missing) == 0 && len(r.Sparse) == 0 {
		b.WriteString("All days have adequate artifacts.\n")
	}
	if len(r.Missing) > 0 {
		fmt.Fprintf(&b, "Missing (%d)\n", len(r.Missing))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, g := range r.Missing {
			writeGap(&b, g)
		}
		b.WriteString("\n")
	}
	if len(r.Sparse) > 0 {
		fmt.Fprintf(&b, "Sparse (%d, threshold %g bytes/message)\n", len(r.Sparse), r.SparseThreshold)
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, g := range r.Sparse {
			writeGap(&b, g)
		}
		b.WriteString("\n")
	}
	if len(r.Orphaned) > 0 {
		fmt.Fprintf(&b, "Orphaned artifacts (%d)\n", len(r.Orphaned))
		b.WriteString(strings.Repeat("-", 40) + "\n")
		for _, a := range r.Orphaned {
			fmt.Fprintf(&b, "  %s: %d bytes, no session activity\n", a.Date, a.Size)
		}
	}
	return b.String()
}

func writeGap(b *strings.Builder, g model.Gap) {
	act := g.Activity
	fmt.Fprintf(b, "  %s (%s): %d messages", act.Date, act.Date.Weekday().String()[:3], act.MessageCount)
	if g.Status == model.Sparse {
		fmt.Fprintf(b, ", %d bytes", g.SizeBytes)
	}
	if len(act.ModelsUsed) > 0 {
		fmt.Fprintf(b, ", models: %s", strings.Join(act.ModelsUsed, ", "))
	}
	b.WriteString("\n")
	if g.Preview != "" {
		fmt.Fprintf(b, "      %q\n", g.Preview)
	}
}
