package migration

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionMigrationState is the in-memory guard for one process session.
//
// It is created with the session and cleared per user on sign-out.
type SessionMigrationState struct {
	group singleflight.Group

	mu       sync.Mutex
	outcomes map[string]attempt
}

type attempt struct {
	result Result
	err    error
}

// NewSessionMigrationState creates an empty guard.
func NewSessionMigrationState() *SessionMigrationState {
	return &SessionMigrationState{outcomes: make(map[string]attempt)}
}

// Do runs fn for userID unless a run is in flight, which is joined instead, or a
// failed attempt is remembered, which is returned without running fn.
// Successful outcomes are not remembered; the persisted marker covers them.
func (s *SessionMigrationState) Do(userID string, fn func() (Result, error)) (Result, error) {
	if a, ok := s.remembered(userID); ok {
		return a.result, a.err
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		if a, ok := s.remembered(userID); ok {
			return a.result, a.err
		}
		result, err := fn()
		if err != nil {
			s.mu.Lock()
			s.outcomes[userID] = attempt{result: result, err: err}
			s.mu.Unlock()
		}
		return result, err
	})
	result, _ := v.(Result)
	return result, err
}

// LastFailure returns the remembered failure for userID, or nil.
func (s *SessionMigrationState) LastFailure(userID string) error {
	a, _ := s.remembered(userID)
	return a.err
}

// Forget drops what is remembered for userID.
func (s *SessionMigrationState) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outcomes, userID)
}

func (s *SessionMigrationState) remembered(userID string) (attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.outcomes[userID]
	return a, ok
}
