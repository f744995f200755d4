package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// KeyCacheCapacity bounds RunState.KnownIDs.
const KeyCacheCapacity = 50_000

// RunState is what the scheduler keeps between cycles and restarts.
type RunState struct {
	// KnownIDs is the bounded key cache, oldest first.
	KnownIDs     []string   `json:"knownIds"`
	LastRunAt    *time.Time `json:"lastRunAt"`
	LastReportAt *time.Time `json:"lastReportAt"`

	// older state files named the report timestamp after the pdf report.
	LegacyLastPdfAt *time.Time `json:"lastPdfAt,omitempty"`
}

// Remember appends ids to the key cache, skipping ones already present and
// evicting the oldest entries past KeyCacheCapacity.
func (r *RunState) Remember(ids ...string) {
	present := make(map[string]struct{}, len(r.KnownIDs))
	for _, id := range r.KnownIDs {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		r.KnownIDs = append(r.KnownIDs, id)
	}
	if over := len(r.KnownIDs) - KeyCacheCapacity; over > 0 {
		r.KnownIDs = append([]string(nil), r.KnownIDs[over:]...)
	}
}

func (r *RunState) migrate() {
	if r.LastReportAt == nil && r.LegacyLastPdfAt != nil {
		r.LastReportAt = r.LegacyLastPdfAt
	}
	r.LegacyLastPdfAt = nil
	if r.KnownIDs == nil {
		r.KnownIDs = []string{}
	}
	if over := len(r.KnownIDs) - KeyCacheCapacity; over > 0 {
		r.KnownIDs = r.KnownIDs[over:]
	}
}

// LoadState reads the run state. Like Load it never fails, a missing or
// malformed file yields an empty state and a warning.
func (s Store) LoadState() RunState {
	empty := RunState{KnownIDs: []string{}}

	raw, err := os.ReadFile(s.StatePath())
	if errors.Is(err, os.ErrNotExist) {
		return empty
	}
	if err != nil {
		s.tel.ReportWarning(report_store_load_state, err, s.StatePath())
		return empty
	}
	if strings.TrimSpace(string(raw)) == "" {
		return empty
	}

	var state RunState
	err = json.Unmarshal(raw, &state)
	if err != nil {
		s.tel.ReportWarning(report_store_load_state, err, s.StatePath())
		return empty
	}
	state.migrate()
	return state
}

func (s Store) SaveState(state RunState) error {
	state.migrate()
	err := writeJSON(s.StatePath(), state)
	if err != nil {
		s.tel.ReportBroken(report_store_save_state, err)
		return fmt.Errorf("save run state: %w", err)
	}
	return nil
}
