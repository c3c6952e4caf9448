package mcp

import (
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// DefaultMaxSessions bounds how many callers keep anti-repetition state.
const DefaultMaxSessions = 256

// session is one caller's repetition tracker. mu serialises retrievals
// for the same session; trackers are single-owner.
type session struct {
	mu      sync.Mutex
	tracker *domain.RepetitionTracker
}

// SessionRegistry maps caller session ids to repetition trackers. The least
// recently used session is forgotten once the registry is full.
type SessionRegistry struct {
	mu          sync.Mutex
	sessions    *lru.Cache
	trackerSize int
}

// NewSessionRegistry creates a registry holding at most maxSessions
// trackers of trackerSize ids each. Non-positive values use the defaults.
func NewSessionRegistry(maxSessions, trackerSize int) *SessionRegistry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if trackerSize <= 0 {
		trackerSize = domain.DefaultTrackerSize
	}
	return &SessionRegistry{sessions: lru.New(maxSessions), trackerSize: trackerSize}
}

func (r *SessionRegistry) get(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.sessions.Get(id); ok {
		return v.(*session)
	}
	s := &session{tracker: domain.NewRepetitionTracker(r.trackerSize)}
	r.sessions.Add(id, s)
	return s
}

// With runs fn with the session's tracker, creating the session if needed.
// An empty id runs fn with a nil tracker, which disables anti-repetition.
func (r *SessionRegistry) With(id string, fn func(*domain.RepetitionTracker) error) error {
	if id == "" {
		return fn(nil)
	}
	s := r.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.tracker)
}

// Reset forgets a session. It reports whether the session existed.
func (r *SessionRegistry) Reset(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions.Get(id); !ok {
		return false
	}
	r.sessions.Remove(id)
	return true
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.Len()
}
