package state

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
)

// MemoryStorage keeps conversation states in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	clock  clockwork.Clock
	states map[int64]ChatState
}

// NewMemoryStorage creates an empty in-memory Storage.
func NewMemoryStorage(clock clockwork.Clock) *MemoryStorage {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStorage{
		clock:  clock,
		states: make(map[int64]ChatState),
	}
}

func (s *MemoryStorage) GetState(_ context.Context, chatID int64) (*ChatState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.states[chatID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return cloneState(stored), nil
}

func (s *MemoryStorage) SetState(_ context.Context, chatID int64, state *ChatState) error {
	state.UpdatedAt = s.clock.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[chatID] = *cloneState(*state)
	return nil
}

func (s *MemoryStorage) ClearState(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, chatID)
	return nil
}

func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*ChatState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*ChatState, 0, len(s.states))
	for _, stored := range s.states {
		result = append(result, cloneState(stored))
	}
	return result, nil
}

func cloneState(src ChatState) *ChatState {
	dst := src
	dst.Context = copyContext(src.Context)
	return &dst
}
