// Package transitions finds the points where the generating model changed.
package transitions

import (
	"iter"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/crimson-sun/daybook/internal/model"
)

// ContextLen is the longest preceding-context excerpt, in runes.
const ContextLen = 160

// Sanitizer redacts text before it is stored in a transition.
type Sanitizer interface {
	Sanitize(text string) string
}

// Extract walks events in order and yields a transition wherever an event's
// model differs from the previous model seen in the same session. Events
// without a model are carried as context but never start a transition.
// The sequence is lazy and can be ranged over any number of times.
func Extract(events []model.Event, san Sanitizer) iter.Seq[model.Transition] {
	return func(yield func(model.Transition) bool) {
		type last struct {
			model, provider string
			content         string
		}
		bySession := make(map[string]*last)
		for _, ev := range events {
			st := bySession[ev.SessionID]
			if st == nil {
				st = &last{}
				bySession[ev.SessionID] = st
			}
			if ev.ModelID != "" {
				if st.model != "" && ev.ModelID != st.model {
					t := model.Transition{
						From:             st.model,
						To:               ev.ModelID,
						FromProvider:     st.provider,
						Provider:         ev.Provider,
						At:               ev.Timestamp,
						SessionID:        ev.SessionID,
						PrecedingContext: excerpt(san.Sanitize(st.content), ContextLen),
					}
					if !yield(t) {
						return
					}
				}
				st.model, st.provider = ev.ModelID, ev.Provider
			}
			if strings.TrimSpace(ev.RawContent) != "" {
				st.content = ev.RawContent
			}
		}
	}
}

// Since filters seq to transitions on or after the local date since.
// A zero since passes everything.
func Since(seq iter.Seq[model.Transition], since model.Date) iter.Seq[model.Transition] {
	return func(yield func(model.Transition) bool) {
		for t := range seq {
			if !since.IsZero() && model.DateOf(t.At).Before(since) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// OnDate filters seq to transitions on d.
func OnDate(seq iter.Seq[model.Transition], d model.Date) iter.Seq[model.Transition] {
	return func(yield func(model.Transition) bool) {
		for t := range seq {
			if model.DateOf(t.At) != d {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Collect drains seq into a slice sorted by time.
func Collect(seq iter.Seq[model.Transition]) []model.Transition {
	var out []model.Transition
	for t := range seq {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Stats summarizes a set of transitions.
type Stats struct {
	Total            int            `json:"total"`
	ByModel          map[string]int `json:"by_model"` // switches into each model
	Models           []string       `json:"models"`
	Providers        []string       `json:"providers"`
	MostCommonTarget string         `json:"most_common_target,omitempty"`
}

// ComputeStats counts transitions. Ties for the most common target go to
// the model name that sorts first.
func ComputeStats(ts []model.Transition) Stats {
	st := Stats{Total: len(ts), ByModel: make(map[string]int)}
	models := make(map[string]bool)
	providers := make(map[string]bool)
	for _, t := range ts {
		st.ByModel[t.To]++
		models[t.To] = true
		if t.From != "" {
			models[t.From] = true
		}
		for _, p := range []string{t.Provider, t.FromProvider} {
			if p != "" {
				providers[p] = true
			}
		}
	}
	st.Models = keys(models)
	st.Providers = keys(providers)
	best := 0
	for _, m := range st.Models {
		if n := st.ByModel[m]; n > best {
			best, st.MostCommonTarget = n, m
		}
	}
	return st
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	// Cut from the front: the end of the message is what preceded the switch.
	return "..." + string(r[len(r)-max:])
}
