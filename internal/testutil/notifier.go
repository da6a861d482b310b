package testutil

import (
	"context"
	"errors"
	"sync"
)

// Message is one notification captured by Notifier.
type Message struct {
	ChatID int64
	Text   string
	Opts   []any
}

// Notifier records notifications and fails for chats listed in Fail.
type Notifier struct {
	mu       sync.Mutex
	messages []Message
	Fail     map[int64]bool
}

// Notify implements notify.Notifier.
func (n *Notifier) Notify(_ context.Context, chatID int64, text string, opts ...any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.messages = append(n.messages, Message{ChatID: chatID, Text: text, Opts: opts})
	if n.Fail[chatID] {
		return errors.New("chat unreachable")
	}
	return nil
}

// Messages returns a copy of everything sent so far.
func (n *Notifier) Messages() []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Message(nil), n.messages...)
}

// To returns the messages sent to chatID.
func (n *Notifier) To(chatID int64) []Message {
	var out []Message
	for _, m := range n.Messages() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
}
