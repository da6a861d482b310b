package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle of a training session.
type SessionStatus string

const (
	SessionPlanned   SessionStatus = "planned"
	SessionCompleted SessionStatus = "completed"
)

// Session is a scheduled training. The reminder flags flip to true once and never back.
type Session struct {
	ID              int64
	ClientID        int64
	ScheduledAt     time.Time
	Status          SessionStatus
	Comment         string
	Reminder24hSent bool
	Reminder2hSent  bool
}

// Payment is an immutable ledger entry; negative amounts record charges.
type Payment struct {
	ID         int64
	ClientID   int64
	Amount     decimal.Decimal
	OccurredAt time.Time
	Note       string
}

// ScheduledSession is a session joined with its client's name for listings.
type ScheduledSession struct {
	Session
	ClientName string
}

// DueSession is a session selected by the reminder sweep with its recipients resolved.
type DueSession struct {
	Session
	ClientName    string
	ClientChatID  *int64
	TrainerChatID *int64
}

// Stats summarizes a trainer's activity over a period.
type Stats struct {
	Days              int
	CompletedSessions int
	Income            decimal.Decimal
}

// Reminder identifies a reminder threshold before a session.
type Reminder string

const (
	Reminder24h Reminder = "24h"
	Reminder2h  Reminder = "2h"
)

// Reminders lists the thresholds in the order the sweep processes them.
var Reminders = []Reminder{Reminder24h, Reminder2h}

// Lead returns how long before the session the reminder fires.
func (r Reminder) Lead() time.Duration {
	switch r {
	case Reminder24h:
		return 24 * time.Hour
	case Reminder2h:
		return 2 * time.Hour
	default:
		return 0
	}
}

// Sent reports whether the session already carries the flag for r.
func (s Session) Sent(r Reminder) bool {
	switch r {
	case Reminder24h:
		return s.Reminder24hSent
	case Reminder2h:
		return s.Reminder2hSent
	default:
		return false
	}
}
