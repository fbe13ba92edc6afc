package daybook

import "time"

// Gap is an active day whose memory file is missing or too small.
// This is the stable public type; internal representations may evolve
// independently.
type Gap struct {
	Date      string   `json:"date"`       // YYYY-MM-DD
	Status    string   `json:"status"`     // "missing" or "sparse"
	Messages  int      `json:"messages"`   // messages logged that day
	SizeBytes int64    `json:"size_bytes"` // size of the existing file, 0 when missing
	Models    []string `json:"models,omitempty"`
	Preview   string   `json:"preview,omitempty"` // sanitized first user message
}

// Coverage is the result of Compare.
type Coverage struct {
	ActiveDays  int     `json:"active_days"`
	CoveredDays int     `json:"covered_days"`
	Percent     float64 `json:"percent"` // 100 when there are no active days
	Missing     []Gap   `json:"missing"`
	Sparse      []Gap   `json:"sparse"`
}

// Range picks the dates a backfill considers. Build one with OnDate,
// Today, Since, AllMissing or Incremental.
type Range struct {
	mode          string
	date          string
	includeSparse bool
}

// OnDate selects a single YYYY-MM-DD date.
func OnDate(date string) Range { return Range{mode: "date", date: date} }

// Today selects the current local date.
func Today() Range { return Range{mode: "today"} }

// Since selects every active date on or after the YYYY-MM-DD date.
func Since(date string) Range { return Range{mode: "since", date: date} }

// AllMissing selects every active date without a memory file.
func AllMissing() Range { return Range{mode: "all-missing"} }

// Incremental selects dates whose session logs changed after the last
// successful run. It fails when no run has been recorded.
func Incremental() Range { return Range{mode: "incremental"} }

// WithSparse makes an AllMissing range also regenerate sparse days.
func (r Range) WithSparse() Range {
	r.includeSparse = true
	return r
}

// WriteOptions controls how memory files are written.
type WriteOptions struct {
	Preserve  bool // keep everything after an existing file's footer marker
	Overwrite bool // replace existing files
	DryRun    bool // compose but write nothing
	Narrative bool // use the configured summarizer for the generated part
}

// BackfillResult summarizes a backfill.
type BackfillResult struct {
	Dates       []string          `json:"dates"` // candidates, in date order
	Created     int               `json:"created"`
	Overwritten int               `json:"overwritten"`
	Preserved   int               `json:"preserved"`
	Skipped     int               `json:"skipped"`
	Warnings    map[string]string `json:"warnings,omitempty"` // date -> narrative fallback reason
	Failed      map[string]string `json:"failed,omitempty"`   // date -> error
}

// Transition is a switch of generation model inside a session.
type Transition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Provider  string    `json:"provider,omitempty"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`
	Context   string    `json:"context,omitempty"` // sanitized excerpt of the preceding message
}
