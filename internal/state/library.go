package state

import (
	"sync"

	"github.com/podforge/podforge/podcast"
)

// Library is the append-only list of completed episodes, newest first.
// Episodes are immutable once added; there is no deletion.
type Library struct {
	mu       sync.Mutex
	episodes []podcast.Episode
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{}
}

// Add prepends a completed episode.
func (l *Library) Add(ep podcast.Episode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.episodes = append([]podcast.Episode{ep}, l.episodes...)
}

// Episodes returns a copy of the stored episodes, newest first.
func (l *Library) Episodes() []podcast.Episode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]podcast.Episode(nil), l.episodes...)
}

// Len reports how many episodes are stored.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.episodes)
}
