package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, chatID int64) (*ChatState, error) {
	args := m.Called(ctx, chatID)
	state, _ := args.Get(0).(*ChatState)
	return state, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, chatID int64, state *ChatState) error {
	args := m.Called(ctx, chatID, state)
	return args.Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*ChatState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*ChatState)
	return states, args.Error(1)
}

func TestStateMachine_TransitionTo(t *testing.T) {
	ctx := context.Background()
	chatID := int64(42)

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "step merges collected context",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, chatID).
					Return(&ChatState{CurrentState: StateAddClientName, Context: map[string]string{KeyClientID: "3"}}, nil).Once()
				ms.On("SetState", mock.Anything, chatID, mock.MatchedBy(func(state *ChatState) bool {
					return state.CurrentState == StateAddClientPhone &&
						state.Context[KeyClientID] == "3" &&
						state.Context[KeyName] == "Anna"
				})).Return(nil).Once()
			},
			newState: StateAddClientPhone,
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, chatID).
					Return(&ChatState{CurrentState: StateIdle}, nil).Once()
			},
			newState:    StateAddClientNotes,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "new chat starts from idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, chatID).
					Return((*ChatState)(nil), ErrStateNotFound).Once()
				ms.On("SetState", mock.Anything, chatID, mock.MatchedBy(func(state *ChatState) bool {
					return state.CurrentState == StateAddClientName
				})).Return(nil).Once()
			},
			newState: StateAddClientName,
		},
		{
			name: "storage failure is returned",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, chatID).
					Return((*ChatState)(nil), errStorageFailure).Once()
			},
			newState:    StateAddClientName,
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger(), nil)
			err := fsm.TransitionTo(ctx, chatID, tc.newState, map[string]string{KeyName: "Anna"})

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_SetStateReplacesContext(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(nil)
	fsm := NewStateMachine(storage, testLogger(), nil)

	require.NoError(t, fsm.SetState(ctx, 5, StatePaymentAmount, map[string]string{KeyClientID: "9"}))
	require.NoError(t, fsm.TransitionTo(ctx, 5, StatePaymentNote, map[string]string{KeyAmount: "1500"}))

	st, err := fsm.GetState(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentNote, st.CurrentState)
	assert.Equal(t, "9", st.Value(KeyClientID))
	assert.Equal(t, "1500", st.Value(KeyAmount))

	require.NoError(t, fsm.SetState(ctx, 5, StateTariffTitle, nil))
	st, err = fsm.GetState(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, st.Value(KeyClientID))
}

func TestStateMachine_ClearState(t *testing.T) {
	ctx := context.Background()

	ms := &mockStorage{}
	ms.On("ClearState", mock.Anything, int64(13)).Return(errStorageFailure).Once()

	fsm := NewStateMachine(ms, testLogger(), nil)
	assert.ErrorIs(t, fsm.ClearState(ctx, 13), errStorageFailure)
	ms.AssertExpectations(t)
}

func TestStateMachine_RedisLock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := &slowStorage{Storage: NewMemoryStorage(nil), delay: 100 * time.Millisecond}
	fsm := NewStateMachine(storage, testLogger(), client)

	ctx := context.Background()
	chatID := int64(77)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.SetState(ctx, chatID, StateAddClientName, nil)
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrStateLocked):
			locked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, success)
	assert.Equal(t, 1, locked)
}

func TestStateMachine_LocalLockSerializes(t *testing.T) {
	storage := &slowStorage{Storage: NewMemoryStorage(nil), delay: 10 * time.Millisecond}
	fsm := NewStateMachine(storage, testLogger(), nil)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, fsm.SetState(ctx, 1, StateAddClientName, nil))
		}()
	}
	wg.Wait()

	st, err := fsm.GetState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateAddClientName, st.CurrentState)
}

func TestCleaner_RemovesStaleStates(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	storage := NewMemoryStorage(clock)

	require.NoError(t, storage.SetState(ctx, 1, &ChatState{ChatID: 1, CurrentState: StateAddClientName}))
	clock.Advance(2 * time.Hour)
	require.NoError(t, storage.SetState(ctx, 2, &ChatState{ChatID: 2, CurrentState: StateTariffTitle}))

	cleaner := NewCleaner(storage, clock, time.Hour, testLogger())
	cleared, err := cleaner.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	_, err = storage.GetState(ctx, 1)
	assert.ErrorIs(t, err, ErrStateNotFound)
	_, err = storage.GetState(ctx, 2)
	assert.NoError(t, err)
}

type slowStorage struct {
	Storage
	delay time.Duration
}

func (s *slowStorage) SetState(ctx context.Context, chatID int64, state *ChatState) error {
	time.Sleep(s.delay)
	return s.Storage.SetState(ctx, chatID, state)
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
