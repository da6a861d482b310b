// Package metrics exposes Prometheus instruments for the bot.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/trainer-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of chats inside a multi-step form",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of chats per conversation state",
		},
		[]string{"state"},
	)
	remindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminders delivered labeled by threshold and recipient",
		},
		[]string{"threshold", "recipient"},
	)
	reminderSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_sweep_duration_seconds",
			Help:    "Duration of a single reminder sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
	reminderSweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_sweep_errors_total",
			Help: "Reminder sweeps that hit a store error",
		},
	)
	notificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Outbound notifications that could not be delivered",
		},
		[]string{"kind"},
	)
	jobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job executions labeled by job and status",
		},
		[]string{"job", "status"},
	)
	duplicateUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duplicate_updates_total",
			Help: "Redelivered Telegram updates that were not processed again",
		},
		[]string{"action", "reason"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	botCommandsTotal.WithLabelValues(orUnknown(command), orUnknown(status)).Inc()
	commandDurationSeconds.WithLabelValues(orUnknown(command)).Observe(duration.Seconds())
}

// RecordStateTransition tracks conversation transitions.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

// RecordReminder counts a delivered reminder.
func RecordReminder(threshold, recipient string) {
	remindersSentTotal.WithLabelValues(orUnknown(threshold), orUnknown(recipient)).Inc()
}

// ObserveSweep records a finished sweep and whether it failed.
func ObserveSweep(duration time.Duration, failed bool) {
	reminderSweepDuration.Observe(duration.Seconds())
	if failed {
		reminderSweepErrors.Inc()
	}
}

// RecordNotificationFailure counts an undelivered notification.
func RecordNotificationFailure(kind string) {
	notificationsFailedTotal.WithLabelValues(orUnknown(kind)).Inc()
}

// RecordDuplicateUpdate counts an update skipped as already handled or in progress.
func RecordDuplicateUpdate(action, reason string) {
	duplicateUpdatesTotal.WithLabelValues(orUnknown(action), orUnknown(reason)).Inc()
}

// RecordJobRun counts a scheduled job execution.
func RecordJobRun(job, status string) {
	jobRunsTotal.WithLabelValues(orUnknown(job), orUnknown(status)).Inc()
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// StateCollector gathers conversation state counts into gauges.
type StateCollector struct {
	fsm state.StateMachine
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm}
}

// Collect refreshes the conversation gauges once.
func (c *StateCollector) Collect(ctx context.Context) error {
	if c == nil || c.fsm == nil {
		return nil
	}

	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(states))
	active := 0
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
		}
		if label != string(state.StateIdle) {
			active++
		}
		counts[label]++
	}

	activeConversations.Set(float64(active))
	conversationsByState.Reset()
	for label, count := range counts {
		conversationsByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
