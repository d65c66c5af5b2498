package booking

import (
	"sync"
	"time"
)

// SessionStore keeps one wizard per conversation (chat id, console).
type SessionStore struct {
	sessions map[int64]*Wizard
	mu       sync.RWMutex
	timeout  time.Duration
	factory  func() *Wizard
}

// NewSessionStore creates a store that builds wizards with factory.
func NewSessionStore(timeout time.Duration, factory func() *Wizard) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[int64]*Wizard),
		timeout:  timeout,
		factory:  factory,
	}
}

// Get returns the wizard of a conversation, or nil.
func (ss *SessionStore) Get(id int64) *Wizard {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[id]
}

// GetOrCreate returns the live wizard of a conversation, replacing an expired
// or finished one.
func (ss *SessionStore) GetOrCreate(id int64) *Wizard {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	w, ok := ss.sessions[id]
	if ok && !w.IsExpired(ss.timeout) && !w.Step().Terminal() {
		return w
	}
	w = ss.factory()
	ss.sessions[id] = w
	return w
}

// Reset starts a fresh wizard for a conversation.
func (ss *SessionStore) Reset(id int64) *Wizard {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if old, ok := ss.sessions[id]; ok {
		old.Cancel()
	}
	w := ss.factory()
	ss.sessions[id] = w
	return w
}

// Delete removes a conversation.
func (ss *SessionStore) Delete(id int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Owner returns the conversation a wizard belongs to.
func (ss *SessionStore) Owner(wizardID string) (int64, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	for id, w := range ss.sessions {
		if w.ID() == wizardID {
			return id, true
		}
	}
	return 0, false
}

// Len returns the number of live conversations.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Cleanup removes expired sessions.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, w := range ss.sessions {
		if w.IsExpired(ss.timeout) {
			w.Cancel()
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}
