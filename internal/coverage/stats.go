package coverage

import (
	"fmt"
	"strings"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/reader"
)

// SessionStats summarizes the session logs.
type SessionStats struct {
	Files       int        `json:"files"`
	Bytes       int64      `json:"bytes"`
	Messages    int        `json:"messages"`
	User        int        `json:"user_messages"`
	Assistant   int        `json:"assistant_messages"`
	Tool        int        `json:"tool_messages"`
	Transitions int        `json:"transitions"`
	Malformed   int        `json:"malformed_lines"`
	Models      []string   `json:"models"`
	First       model.Date `json:"first"`
	Last        model.Date `json:"last"`
}

// ArtifactStats summarizes the artifact directory.
type ArtifactStats struct {
	Files           int        `json:"files"`
	Bytes           int64      `json:"bytes"`
	First           model.Date `json:"first"`
	Last            model.Date `json:"last"`
	CoveragePercent float64    `json:"coverage_percent"`
}

// Stats is the stats report.
type Stats struct {
	Sessions  SessionStats  `json:"sessions"`
	Artifacts ArtifactStats `json:"artifacts"`
}

// SessionStatsOf summarizes a scan. Transitions is left for the caller.
func SessionStatsOf(scan reader.Scan) SessionStats {
	st := SessionStats{Files: len(scan.Sessions), Malformed: scan.Stats.Malformed}
	models := make(map[string]bool)
	for _, s := range scan.Sessions {
		st.Bytes += s.File.Size
	}
	for _, ev := range scan.Events {
		st.Messages++
		switch ev.Role {
		case model.RoleUser:
			st.User++
		case model.RoleAssistant:
			st.Assistant++
		case model.RoleTool:
			st.Tool++
		}
		if ev.ModelID != "" {
			models[ev.ModelID] = true
		}
		d := model.DateOf(ev.Timestamp)
		if st.First.IsZero() || d.Before(st.First) {
			st.First = d
		}
		if st.Last.IsZero() || st.Last.Before(d) {
			st.Last = d
		}
	}
	st.Models = sortedKeys(models)
	return st
}

// ArtifactStatsOf summarizes artifacts against activity.
func ArtifactStatsOf(arts []Artifact, activity []model.DayActivity, threshold float64) ArtifactStats {
	st := ArtifactStats{Files: len(arts)}
	for _, a := range arts {
		st.Bytes += a.Size
		if st.First.IsZero() || a.Date.Before(st.First) {
			st.First = a.Date
		}
		if st.Last.IsZero() || st.Last.Before(a.Date) {
			st.Last = a.Date
		}
	}
	st.CoveragePercent = Analyze(activity, NewIndex(arts), threshold).CoveragePercent
	return st
}

func (Stats) Kind() string { return "stats" }

// Text renders the stats report.
func (s Stats) Text() string {
	var b strings.Builder
	ss, as := s.Sessions, s.Artifacts
	b.WriteString("Session Logs\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "  Files: %d (%s)\n", ss.Files, humanBytes(ss.Bytes))
	fmt.Fprintf(&b, "  Messages: %d (user %d, assistant %d, tool %d)\n", ss.Messages, ss.User, ss.Assistant, ss.Tool)
	fmt.Fprintf(&b, "  Model transitions: %d\n", ss.Transitions)
	if len(ss.Models) > 0 {
		fmt.Fprintf(&b, "  Models: %s\n", strings.Join(ss.Models, ", "))
	}
	fmt.Fprintf(&b, "  Date range: %s\n", dateRange(ss.First, ss.Last))
	if ss.Malformed > 0 {
		fmt.Fprintf(&b, "  Skipped lines: %d\n", ss.Malformed)
	}
	b.WriteString("\nArtifacts\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "  Files: %d (%s)\n", as.Files, humanBytes(as.Bytes))
	fmt.Fprintf(&b, "  Date range: %s\n", dateRange(as.First, as.Last))
	fmt.Fprintf(&b, "  Coverage: %.1f%%\n", as.CoveragePercent)
	return b.String()
}

func dateRange(first, last model.Date) string {
	if first.IsZero() {
		return "none"
	}
	return first.String() + " to " + last.String()
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
