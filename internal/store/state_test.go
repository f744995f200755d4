package store

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRememberEvictsOldest(t *testing.T) {
	var state RunState
	for i := 0; i < KeyCacheCapacity; i++ {
		state.KnownIDs = append(state.KnownIDs, fmt.Sprintf("id-%d", i))
	}

	state.Remember("id-3", "new-1", " ", "new-2")
	require.Len(t, state.KnownIDs, KeyCacheCapacity)
	require.Equal(t, "id-2", state.KnownIDs[0])
	require.Equal(t, []string{"new-1", "new-2"}, state.KnownIDs[KeyCacheCapacity-2:])
}

func TestStateRoundTripAndMigration(t *testing.T) {
	s, rec := newTestStore(t)

	legacy := `{"knownIds": ["a", "b"], "lastRunAt": "2026-02-04T13:45:00.000Z", "lastPdfAt": "2026-02-04T13:40:00.000Z"}`
	require.NoError(t, os.WriteFile(s.StatePath(), []byte(legacy), 0o644))

	state := s.LoadState()
	require.Equal(t, []string{"a", "b"}, state.KnownIDs)
	require.NotNil(t, state.LastReportAt)
	require.Equal(t, time.Date(2026, 2, 4, 13, 40, 0, 0, time.UTC), state.LastReportAt.UTC())
	require.Nil(t, state.LegacyLastPdfAt)

	now := time.Date(2026, 2, 4, 14, 0, 0, 0, time.UTC)
	state.LastRunAt = &now
	state.Remember("c")
	require.NoError(t, s.SaveState(state))

	raw, err := os.ReadFile(s.StatePath())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "lastPdfAt")

	reloaded := s.LoadState()
	require.Equal(t, []string{"a", "b", "c"}, reloaded.KnownIDs)
	require.True(t, now.Equal(*reloaded.LastRunAt))
	require.Empty(t, rec.Find("warning", ""))
}

func TestMalformedStateFallsBack(t *testing.T) {
	s, rec := newTestStore(t)
	require.NoError(t, os.WriteFile(s.StatePath(), []byte("{oops"), 0o644))

	state := s.LoadState()
	require.Empty(t, state.KnownIDs)
	require.Nil(t, state.LastRunAt)
	require.Len(t, rec.Find("warning", report_store_load_state), 1)
}
