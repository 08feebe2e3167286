// Package state holds the single application state object and the episode
// library. All mutation goes through the controllers; every write is gated on
// the session epoch so superseded results never become visible.
package state

import (
	"fmt"
	"sync"

	"github.com/podforge/podforge/podcast"
)

// Session is the state of the one current generation attempt.
type Session struct {
	Epoch         int64
	Status        podcast.SessionStatus
	Script        *podcast.Script
	AudioSegments []podcast.AudioSegment
	Category      string
	CoverImage    string
	Err           string
}

// transitions enumerates the legal status moves within one session. Starting
// a new session replaces the state wholesale and is not subject to the table.
var transitions = map[podcast.SessionStatus][]podcast.SessionStatus{
	podcast.StatusIdle:         {podcast.StatusScripting},
	podcast.StatusScripting:    {podcast.StatusSynthesizing, podcast.StatusError},
	podcast.StatusSynthesizing: {podcast.StatusComplete, podcast.StatusError},
	podcast.StatusComplete:     {},
	podcast.StatusError:        {},
}

// Transition moves the session to a new status, rejecting moves the lifecycle
// does not allow.
func (s *Session) Transition(to podcast.SessionStatus) error {
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			s.Status = to
			return nil
		}
	}
	return fmt.Errorf("illegal status transition %s -> %s", s.Status, to)
}

// clone returns a deep enough copy for consumers to hold without racing the
// store.
func (s *Session) clone() Session {
	c := *s
	c.AudioSegments = append([]podcast.AudioSegment(nil), s.AudioSegments...)
	return c
}

// Store is the single consistent state object read by all consumers.
type Store struct {
	mu       sync.Mutex
	session  Session
	onChange func(Session)
}

// NewStore returns a store holding an idle zero-epoch session.
func NewStore() *Store {
	return &Store{session: Session{Status: podcast.StatusIdle}}
}

// OnChange registers a callback invoked with a snapshot after every committed
// mutation. Intended for render layers and progress reporting.
func (s *Store) OnChange(fn func(Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Begin replaces the current session with a fresh scripting-state session for
// the given epoch, implicitly superseding whatever was in flight.
func (s *Store) Begin(epoch int64, category, coverImage string) {
	s.mu.Lock()
	s.session = Session{
		Epoch:      epoch,
		Status:     podcast.StatusScripting,
		Category:   category,
		CoverImage: coverImage,
	}
	snapshot, fn := s.session.clone(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// ResetIdle replaces the current session with an idle one for the given epoch.
// Used by cancellation.
func (s *Store) ResetIdle(epoch int64) {
	s.mu.Lock()
	s.session = Session{Epoch: epoch, Status: podcast.StatusIdle}
	snapshot, fn := s.session.clone(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Apply mutates the session under the store lock if and only if epoch still
// identifies the current session. It reports whether the mutation ran; a
// false return means the caller's result belongs to a superseded session and
// must be dropped silently.
func (s *Store) Apply(epoch int64, mutate func(*Session)) bool {
	s.mu.Lock()
	if s.session.Epoch != epoch {
		s.mu.Unlock()
		return false
	}
	mutate(&s.session)
	snapshot, fn := s.session.clone(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
	return true
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}
