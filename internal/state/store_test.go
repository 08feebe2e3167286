package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podforge/podforge/podcast"
)

func TestStore_ApplyGatesOnEpoch(t *testing.T) {
	store := NewStore()
	store.Begin(1, "Tech", "")

	ok := store.Apply(1, func(s *Session) {
		s.AudioSegments = append(s.AudioSegments, podcast.AudioSegment{Index: 0, URL: "a"})
	})
	assert.True(t, ok)

	// a new session supersedes epoch 1; stale writes must be rejected
	store.Begin(2, "Science", "")
	ok = store.Apply(1, func(s *Session) {
		s.AudioSegments = append(s.AudioSegments, podcast.AudioSegment{Index: 1, URL: "stale"})
	})
	assert.False(t, ok)

	snap := store.Snapshot()
	assert.Equal(t, int64(2), snap.Epoch)
	assert.Equal(t, "Science", snap.Category)
	assert.Empty(t, snap.AudioSegments)
}

func TestStore_BeginResetsSession(t *testing.T) {
	store := NewStore()
	store.Begin(1, "Tech", "")
	store.Apply(1, func(s *Session) {
		script := podcast.Script{Title: "old"}
		s.Script = &script
		s.Err = "old error"
	})

	store.Begin(2, "News", "cover.png")
	snap := store.Snapshot()
	assert.Equal(t, podcast.StatusScripting, snap.Status)
	assert.Nil(t, snap.Script)
	assert.Empty(t, snap.Err)
	assert.Equal(t, "cover.png", snap.CoverImage)
}

func TestStore_OnChangeFiresWithSnapshot(t *testing.T) {
	store := NewStore()
	var seen []podcast.SessionStatus
	store.OnChange(func(s Session) {
		seen = append(seen, s.Status)
	})

	store.Begin(1, "Tech", "")
	store.Apply(1, func(s *Session) {
		require.NoError(t, s.Transition(podcast.StatusSynthesizing))
	})
	store.ResetIdle(2)

	assert.Equal(t, []podcast.SessionStatus{
		podcast.StatusScripting,
		podcast.StatusSynthesizing,
		podcast.StatusIdle,
	}, seen)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	store := NewStore()
	store.Begin(1, "Tech", "")
	store.Apply(1, func(s *Session) {
		s.AudioSegments = append(s.AudioSegments, podcast.AudioSegment{Index: 0, URL: "a"})
	})

	snap := store.Snapshot()
	snap.AudioSegments[0].URL = "mutated"
	assert.Equal(t, "a", store.Snapshot().AudioSegments[0].URL)
}

func TestSession_Transitions(t *testing.T) {
	tests := []struct {
		from    podcast.SessionStatus
		to      podcast.SessionStatus
		allowed bool
	}{
		{podcast.StatusIdle, podcast.StatusScripting, true},
		{podcast.StatusScripting, podcast.StatusSynthesizing, true},
		{podcast.StatusScripting, podcast.StatusError, true},
		{podcast.StatusSynthesizing, podcast.StatusComplete, true},
		{podcast.StatusSynthesizing, podcast.StatusError, true},
		{podcast.StatusIdle, podcast.StatusComplete, false},
		{podcast.StatusScripting, podcast.StatusComplete, false},
		{podcast.StatusComplete, podcast.StatusSynthesizing, false},
		{podcast.StatusComplete, podcast.StatusError, false},
		{podcast.StatusError, podcast.StatusComplete, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			s := Session{Status: tc.from}
			err := s.Transition(tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, s.Status)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.from, s.Status, "status unchanged on rejected transition")
			}
		})
	}
}

func TestLibrary_NewestFirstAndImmutable(t *testing.T) {
	lib := NewLibrary()
	lib.Add(podcast.Episode{ID: "first"})
	lib.Add(podcast.Episode{ID: "second"})

	episodes := lib.Episodes()
	require.Len(t, episodes, 2)
	assert.Equal(t, "second", episodes[0].ID)
	assert.Equal(t, "first", episodes[1].ID)

	episodes[0].ID = "mutated"
	assert.Equal(t, "second", lib.Episodes()[0].ID)
	assert.Equal(t, 2, lib.Len())
}
