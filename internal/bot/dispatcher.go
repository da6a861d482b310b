package bot

import (
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/state"
)

// Dispatcher routes free text to the handler of the chat's current form step.
type Dispatcher struct {
	fsm           state.StateMachine
	stateHandlers map[state.State]handlers.Handler
	log           *slog.Logger
	mu            sync.RWMutex
}

// NewDispatcher creates a Dispatcher with an empty handlers registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		stateHandlers: make(map[state.State]handlers.Handler),
		log:           log,
	}
}

// RegisterStateHandler registers a handler for the provided state.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Resolve returns the handler for the chat's current state, or nil when the chat is idle or
// its state has no handler.
func (d *Dispatcher) Resolve(c telebot.Context) (handlers.Handler, error) {
	if c == nil || c.Chat() == nil {
		d.log.Warn("cannot dispatch without chat information")
		return nil, nil
	}

	chatID := c.Chat().ID

	currentState := state.StateIdle
	chatState, err := d.fsm.GetState(handlers.Context(c), chatID)
	if err != nil {
		if !errors.Is(err, state.ErrStateNotFound) {
			return nil, err
		}
	} else if chatState != nil {
		currentState = chatState.CurrentState
	}

	handler := d.getHandler(currentState)
	if handler == nil && currentState != state.StateIdle {
		d.log.Debug("no handler registered for state", "state", currentState, "chat_id", chatID)
	}
	return handler, nil
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
