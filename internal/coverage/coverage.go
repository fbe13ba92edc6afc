// Package coverage groups events into days and scores each active day
// against the artifacts on disk.
package coverage

import (
	"fmt"
	"sort"
	"time"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/reader"
)

// DefaultSparseThreshold is the default bytes-per-message floor below which
// an artifact counts as sparse.
const DefaultSparseThreshold = 5.0

// Group aggregates events by the local calendar date of their timestamp.
// Events keep their relative order; compactions are attached to their day
// but create no day of their own. The result is sorted by date.
func Group(events []model.Event, compactions []model.Compaction) []model.DayActivity {
	byDate := make(map[model.Date]*model.DayActivity)
	models := make(map[model.Date]map[string]bool)
	sessions := make(map[model.Date]map[string]bool)

	for _, ev := range events {
		d := model.DateOf(ev.Timestamp)
		act, ok := byDate[d]
		if !ok {
			act = &model.DayActivity{Date: d}
			byDate[d] = act
			models[d] = make(map[string]bool)
			sessions[d] = make(map[string]bool)
		}
		act.Events = append(act.Events, ev)
		act.MessageCount++
		if ev.ModelID != "" {
			models[d][ev.ModelID] = true
		}
		if ev.SessionID != "" {
			sessions[d][ev.SessionID] = true
		}
	}
	for _, c := range compactions {
		if act, ok := byDate[model.DateOf(c.Timestamp)]; ok {
			act.Compactions = append(act.Compactions, c)
		}
	}

	out := make([]model.DayActivity, 0, len(byDate))
	for d, act := range byDate {
		model.SortEvents(act.Events)
		act.ModelsUsed = sortedKeys(models[d])
		act.SessionIDs = sortedKeys(sessions[d])
		out = append(out, *act)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Find returns the activity for d.
func Find(activity []model.DayActivity, d model.Date) (model.DayActivity, bool) {
	i := sort.Search(len(activity), func(i int) bool { return !activity[i].Date.Before(d) })
	if i < len(activity) && activity[i].Date == d {
		return activity[i], true
	}
	return model.DayActivity{}, false
}

// Report is the result of Analyze.
type Report struct {
	Missing         []model.Gap
	Sparse          []model.Gap
	Covered         []model.Date
	Orphaned        []Artifact // artifacts for dates with no activity
	TotalActiveDays int
	CoveredDays     int
	CoveragePercent float64
	SparseThreshold float64
}

// Analyze classifies every active day. Coverage is 100 when there are no
// active days.
func Analyze(activity []model.DayActivity, index Index, threshold float64) Report {
	r := Report{TotalActiveDays: len(activity), SparseThreshold: threshold}
	active := make(map[model.Date]bool, len(activity))
	for _, act := range activity {
		active[act.Date] = true
		art, exists := index[act.Date]
		status, reason := Classify(act.MessageCount, art.Size, exists, threshold)
		switch status {
		case model.Missing:
			r.Missing = append(r.Missing, model.Gap{Activity: act, Status: status, Reason: reason})
		case model.Sparse:
			r.Sparse = append(r.Sparse, model.Gap{Activity: act, Status: status, SizeBytes: art.Size, Reason: reason})
		default:
			r.Covered = append(r.Covered, act.Date)
		}
	}
	r.CoveredDays = len(r.Covered)
	r.CoveragePercent = Percent(r.CoveredDays, r.TotalActiveDays)

	for _, art := range index.Sorted() {
		if !active[art.Date] {
			r.Orphaned = append(r.Orphaned, art)
		}
	}
	return r
}

// Classify scores one day. An artifact is sparse when
// size / messageCount < threshold.
func Classify(messageCount int, size int64, exists bool, threshold float64) (model.CoverageStatus, string) {
	if !exists {
		return model.Missing, "no artifact"
	}
	if messageCount > 0 && float64(size) < threshold*float64(messageCount) {
		return model.Sparse, fmt.Sprintf("%d bytes for %d messages (%.2f bytes/message, threshold %g)",
			size, messageCount, float64(size)/float64(messageCount), threshold)
	}
	return model.Covered, ""
}

// Percent returns covered/total as a percentage, 100 for no days.
func Percent(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(covered) / float64(total) * 100
}

// ChangedDates returns the dates of every event in sessions whose file was
// modified strictly after since. This follows file modification times, not
// the events themselves: an append to a file marks all of its dates as
// changed, and a file whose mtime predates since through clock skew is
// missed.
func ChangedDates(sessions []reader.Session, since time.Time) []model.Date {
	seen := make(map[model.Date]bool)
	for _, s := range sessions {
		if !s.File.ModTime.After(since) {
			continue
		}
		for _, ev := range s.Events {
			seen[model.DateOf(ev.Timestamp)] = true
		}
	}
	out := make([]model.Date, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	model.SortDates(out)
	return out
}

// DatesSince returns active dates on or after since.
func DatesSince(activity []model.DayActivity, since model.Date) []model.Date {
	var out []model.Date
	for _, act := range activity {
		if !act.Date.Before(since) {
			out = append(out, act.Date)
		}
	}
	return out
}

// Dates returns the gap dates of r, missing and sparse, in date order.
func (r Report) Dates(includeSparse bool) []model.Date {
	var out []model.Date
	for _, g := range r.Missing {
		out = append(out, g.Activity.Date)
	}
	if includeSparse {
		for _, g := range r.Sparse {
			out = append(out, g.Activity.Date)
		}
	}
	model.SortDates(out)
	return out
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
