package engine

import (
	"sync"

	"mail-reminder-bot/internal/models"
)

// stateStore holds the per-chat conversation states in process memory.
// Access to a chat's state is serialized: withChat holds that chat's
// lock for the whole handler, so two events for the same chat cannot
// interleave their read-modify-write.
type stateStore struct {
	mu    sync.Mutex
	slots map[int64]*chatSlot
}

type chatSlot struct {
	mu    sync.Mutex
	state models.ConversationState
}

func newStateStore() *stateStore {
	return &stateStore{slots: make(map[int64]*chatSlot)}
}

func (s *stateStore) slot(chatID int64) *chatSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[chatID]
	if !ok {
		sl = &chatSlot{}
		s.slots[chatID] = sl
	}
	return sl
}

// withChat runs fn with exclusive access to one chat's state. fn may
// mutate the state in place; the mutation is visible to the next event
// for that chat.
func (s *stateStore) withChat(chatID int64, fn func(st *models.ConversationState)) {
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(&sl.state)
}

// peek returns a copy of the current state, for tests.
func (s *stateStore) peek(chatID int64) models.ConversationState {
	sl := s.slot(chatID)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.state
}
