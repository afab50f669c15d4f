package service

import "sync"

// sessionLocks serializes turns per session. Acquisition is non-blocking:
// a second turn arriving while one is in flight is rejected, not queued, so
// the caller can surface the contention instead of silently reordering
// merges.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{held: make(map[string]struct{})}
}

// acquire claims the lock for sessionID. Returns false when a turn is
// already in progress for that session.
func (l *sessionLocks) acquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[sessionID]; busy {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

func (l *sessionLocks) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, sessionID)
}
