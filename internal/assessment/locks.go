package assessment

import "sync"

// sessionLocks serializes mutations per session. Submissions for one
// session read-modify-write the completed-part set; without this a
// double-submission of the same part could race past the
// already-completed check.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a session id and returns its unlock func.
func (sl *sessionLocks) lock(sessionID string) func() {
	sl.mu.Lock()
	m, ok := sl.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		sl.locks[sessionID] = m
	}
	sl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
