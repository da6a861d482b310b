package jobs

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

// QueueNotifier hands messages to the Redis queue; the worker delivers them with retries
// that survive restarts.
type QueueNotifier struct {
	manager Manager
	kind    string
}

// NewQueueNotifier returns a notifier enqueueing through manager. kind tags payloads for metrics.
func NewQueueNotifier(manager Manager, kind string) *QueueNotifier {
	return &QueueNotifier{manager: manager, kind: kind}
}

// Notify enqueues the message. Only *telebot.ReplyMarkup options survive the queue.
func (q *QueueNotifier) Notify(ctx context.Context, chatID int64, text string, opts ...any) error {
	payload := NotifyPayload{ChatID: chatID, Text: text, Kind: q.kind}
	for _, opt := range opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			payload.Markup = markup
		}
	}

	task, err := NewNotifyTask(payload)
	if err != nil {
		return err
	}
	_, err = q.manager.Enqueue(ctx, task)
	return err
}
