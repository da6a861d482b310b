// Package state manages per-chat conversation state for multi-step forms.
package state

import "context"

// Storage defines the persistence contract for conversation state.
type Storage interface {
	// GetState returns the current state for the specified chat.
	GetState(ctx context.Context, chatID int64) (*ChatState, error)
	// SetState saves the provided state for the specified chat.
	SetState(ctx context.Context, chatID int64, state *ChatState) error
	// ClearState removes the state for the specified chat.
	ClearState(ctx context.Context, chatID int64) error
	// GetAllStates lists every stored state.
	GetAllStates(ctx context.Context) ([]*ChatState, error)
}
