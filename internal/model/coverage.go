package model

import "time"

// CoverageStatus classifies how well a date's artifact covers its activity.
type CoverageStatus int

const (
	Missing CoverageStatus = iota // no artifact exists
	Sparse                        // artifact too small for the day's volume
	Covered
)

func (s CoverageStatus) String() string {
	switch s {
	case Missing:
		return "missing"
	case Sparse:
		return "sparse"
	case Covered:
		return "covered"
	default:
		return "unknown"
	}
}

// Gap is an active date whose artifact is missing or sparse.
type Gap struct {
	Activity  DayActivity
	Status    CoverageStatus
	SizeBytes int64
	Reason    string
	Preview   string // sanitized excerpt of the day's first user message
}

// Transition records a change of generation model between consecutive events.
type Transition struct {
	From             string    `json:"from"`
	To               string    `json:"to"`
	FromProvider     string    `json:"from_provider,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	At               time.Time `json:"at"`
	SessionID        string    `json:"session_id,omitempty"`
	PrecedingContext string    `json:"preceding_context,omitempty"`
}

// RunState is the persisted watermark of the last successful run.
type RunState struct {
	LastRunTimestamp   time.Time `json:"lastRunTimestamp"`
	LastSuccessfulDate string    `json:"lastSuccessfulDate,omitempty"`
	TotalDaysProcessed int       `json:"totalDaysProcessed"`
}

// IsZero reports whether no run has ever been recorded.
func (s RunState) IsZero() bool {
	return s.LastRunTimestamp.IsZero()
}
