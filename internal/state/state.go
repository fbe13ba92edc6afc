// Package state persists the watermark of the last successful run.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/daybook/internal/model"
	"github.com/crimson-sun/daybook/internal/output/file"
)

// ErrCorrupt is returned by Load when the state file exists but cannot be
// parsed. The returned state is zero: no watermark is ever guessed.
var ErrCorrupt = errors.New("state: corrupt state file")

// DefaultPath returns ~/.daybook/state.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".daybook", "state.json")
	}
	return filepath.Join(home, ".daybook", "state.json")
}

// Store reads and writes one state file. It assumes a single writer.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore returns a Store for path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the state. A missing file yields the zero state and no error.
func (s *Store) Load() (model.RunState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.RunState{}, nil
	}
	if err != nil {
		return model.RunState{}, fmt.Errorf("%w: read %s: %v", ErrCorrupt, s.path, err)
	}
	var st model.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return model.RunState{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if st.TotalDaysProcessed < 0 || (st.LastSuccessfulDate != "" && !validDate(st.LastSuccessfulDate)) {
		return model.RunState{}, fmt.Errorf("%w: %s: invalid fields", ErrCorrupt, s.path)
	}
	return st, nil
}

// Save replaces the state file atomically.
func (s *Store) Save(st model.RunState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := file.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	s.logger.Debug("saved run state",
		zap.String("path", s.path),
		zap.Time("last_run", st.LastRunTimestamp),
		zap.String("last_date", st.LastSuccessfulDate))
	return nil
}

// Advance returns prev updated for a successful run that started at runAt
// and processed the given dates. prev is not modified.
func Advance(prev model.RunState, runAt time.Time, processed []model.Date) model.RunState {
	next := prev
	next.LastRunTimestamp = runAt
	next.TotalDaysProcessed += len(processed)
	for _, d := range processed {
		if last, err := model.ParseDate(next.LastSuccessfulDate); err != nil || last.Before(d) {
			next.LastSuccessfulDate = d.String()
		}
	}
	return next
}

func validDate(s string) bool {
	_, err := model.ParseDate(s)
	return err == nil
}
