package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	telebot "gopkg.in/telebot.v3"
)

const (
	TaskTypeNotify = "notify:send"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

const (
	notifyMaxRetry = 5
	notifyTimeout  = 30 * time.Second
)

// NotifyPayload is a queued chat message.
type NotifyPayload struct {
	ChatID int64                `json:"chat_id"`
	Text   string               `json:"text"`
	Kind   string               `json:"kind,omitempty"`
	Markup *telebot.ReplyMarkup `json:"markup,omitempty"`
}

// NewNotifyTask wraps payload in a retried task on the default queue.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal notify payload: %w", err)
	}

	return asynq.NewTask(TaskTypeNotify, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(notifyMaxRetry),
		asynq.Timeout(notifyTimeout),
	), nil
}

// DecodeNotify reads a NotifyPayload from a task.
func DecodeNotify(t *asynq.Task) (NotifyPayload, error) {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode notify payload: %w", err)
	}
	return payload, nil
}
