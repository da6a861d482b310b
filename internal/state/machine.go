package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	chatLockKeyPattern = "chat:lock:%d"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates that a requested step is not allowed from the current one.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a chat has no stored state.
	ErrStateNotFound = errors.New("chat state not found")
	// ErrStateLocked indicates that a concurrent update already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the conversation controller.
type StateMachine interface {
	GetState(ctx context.Context, chatID int64) (*ChatState, error)
	// SetState starts a step unconditionally, replacing any collected context.
	SetState(ctx context.Context, chatID int64, state State, contextData map[string]string) error
	// TransitionTo moves to the next step, merging updates into the collected context.
	TransitionTo(ctx context.Context, chatID int64, newState State, updates map[string]string) error
	ClearState(ctx context.Context, chatID int64) error
	GetAllStates(ctx context.Context) ([]*ChatState, error)
}

// Locker serializes updates for a single chat.
type Locker interface {
	Lock(ctx context.Context, chatID int64) error
	Unlock(ctx context.Context, chatID int64)
}

type machine struct {
	storage Storage
	locker  Locker
	log     *slog.Logger
}

// NewStateMachine creates a controller over storage. When redisClient is nil, chats are
// serialized with in-process mutexes instead of Redis SETNX locks.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	var locker Locker = newLocalLocker()
	if redisClient != nil {
		locker = &redisLocker{client: redisClient, log: log}
	}

	return &machine{
		storage: storage,
		locker:  locker,
		log:     log,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, chatID int64) (*ChatState, error) {
	return m.storage.GetState(ctx, chatID)
}

// GetAllStates returns every persisted chat state.
func (m *machine) GetAllStates(ctx context.Context) ([]*ChatState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, chatID int64, state State, contextData map[string]string) error {
	if err := m.locker.Lock(ctx, chatID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, chatID)

	current := StateIdle
	if stored, err := m.storage.GetState(ctx, chatID); err == nil && stored != nil {
		current = stored.CurrentState
	}
	transitionRecorder(string(current), string(state))

	return m.saveState(ctx, chatID, state, copyContext(contextData))
}

func (m *machine) TransitionTo(ctx context.Context, chatID int64, newState State, updates map[string]string) error {
	if err := m.locker.Lock(ctx, chatID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, chatID)

	current := StateIdle
	collected := map[string]string{}

	storedState, err := m.storage.GetState(ctx, chatID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
	} else if storedState != nil {
		current = storedState.CurrentState
		collected = copyContext(storedState.Context)
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid state transition", "chat_id", chatID, "from", current, "to", newState)
		return ErrInvalidTransition
	}

	for key, value := range updates {
		collected[key] = value
	}

	transitionRecorder(string(current), string(newState))

	return m.saveState(ctx, chatID, newState, collected)
}

// ClearState removes the stored state via the backing storage while holding the lock.
func (m *machine) ClearState(ctx context.Context, chatID int64) error {
	if err := m.locker.Lock(ctx, chatID); err != nil {
		return err
	}
	defer m.locker.Unlock(ctx, chatID)

	return m.storage.ClearState(ctx, chatID)
}

func (m *machine) saveState(ctx context.Context, chatID int64, state State, contextData map[string]string) error {
	chatState := &ChatState{
		ChatID:       chatID,
		CurrentState: state,
		Context:      contextData,
	}

	return m.storage.SetState(ctx, chatID, chatState)
}

func copyContext(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

type redisLocker struct {
	client *redis.Client
	log    *slog.Logger
}

func (l *redisLocker) Lock(ctx context.Context, chatID int64) error {
	key := fmt.Sprintf(chatLockKeyPattern, chatID)
	acquired, err := l.client.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		l.log.Error("failed to acquire chat state lock", "chat_id", chatID, "error", err)
		return err
	}

	if !acquired {
		l.log.Warn("chat state lock already held", "chat_id", chatID)
		return ErrStateLocked
	}

	return nil
}

func (l *redisLocker) Unlock(ctx context.Context, chatID int64) {
	key := fmt.Sprintf(chatLockKeyPattern, chatID)
	if err := l.client.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		l.log.Error("failed to release chat state lock", "chat_id", chatID, "error", err)
	}
}

type localLocker struct {
	mu    sync.Mutex
	chats map[int64]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{chats: make(map[int64]*sync.Mutex)}
}

func (l *localLocker) Lock(_ context.Context, chatID int64) error {
	l.mu.Lock()
	chatMu, ok := l.chats[chatID]
	if !ok {
		chatMu = &sync.Mutex{}
		l.chats[chatID] = chatMu
	}
	l.mu.Unlock()

	chatMu.Lock()
	return nil
}

func (l *localLocker) Unlock(_ context.Context, chatID int64) {
	l.mu.Lock()
	chatMu := l.chats[chatID]
	l.mu.Unlock()

	if chatMu != nil {
		chatMu.Unlock()
	}
}
