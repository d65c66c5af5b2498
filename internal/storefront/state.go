package storefront

import "sync"

type contactStep string

const (
	contactNone  contactStep = "none"
	contactName  contactStep = "name"
	contactPhone contactStep = "phone"
)

// contactState tracks the free-text questions asked after a slot is chosen.
type contactState struct {
	Step contactStep
	Name string
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*contactState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*contactState)}
}

func (s *stateStore) get(chatID int64) contactState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[chatID]
	if st == nil {
		return contactState{Step: contactNone}
	}
	return *st
}

func (s *stateStore) set(chatID int64, st contactState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = &st
}

func (s *stateStore) reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}
