package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/trainer-bot/internal/domain"
)

const sessionColumns = `s.id, s.client_id, s.scheduled_at, s.status, s.comment, s.reminder_24h_sent, s.reminder_2h_sent`

// reminderFlags maps thresholds to their flag column; only these names reach SQL.
var reminderFlags = map[domain.Reminder]string{
	domain.Reminder24h: "reminder_24h_sent",
	domain.Reminder2h:  "reminder_2h_sent",
}

// CreateSession inserts a planned session with both reminder flags cleared.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	const query = `
		INSERT INTO sessions (client_id, scheduled_at, status, comment, reminder_24h_sent, reminder_2h_sent)
		VALUES ($1, $2, $3, $4, FALSE, FALSE)
		RETURNING id
	`

	sess.ScheduledAt = dbTime(sess.ScheduledAt)
	sess.Status = domain.SessionPlanned
	sess.Reminder24hSent, sess.Reminder2hSent = false, false
	if err := s.q.QueryRowContext(ctx, query, sess.ClientID, sess.ScheduledAt, string(sess.Status), sess.Comment).Scan(&sess.ID); err != nil {
		s.log.Error("failed to create session", slog.Int64("client_id", sess.ClientID), slog.Any("error", err))
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// SessionByID loads a session by primary key.
func (s *Store) SessionByID(ctx context.Context, id int64) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.id = $1`

	var sess domain.Session
	if err := scanSession(s.q.QueryRowContext(ctx, query, id), &sess); err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

// CompleteSession marks the session completed; completing twice is harmless.
func (s *Store) CompleteSession(ctx context.Context, id int64) error {
	const query = `UPDATE sessions SET status = $1 WHERE id = $2`

	return s.execOne(ctx, "complete session", query, string(domain.SessionCompleted), id)
}

// RecentSessions returns the client's latest sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, clientID int64, limit int) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s WHERE s.client_id = $1 ORDER BY s.scheduled_at DESC, s.id DESC LIMIT $2`

	return s.listSessions(ctx, query, clientID, limit)
}

// UpcomingClientSessions returns the client's planned sessions from since onwards.
func (s *Store) UpcomingClientSessions(ctx context.Context, clientID int64, since time.Time, limit int) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s
		WHERE s.client_id = $1 AND s.status = $2 AND s.scheduled_at >= $3
		ORDER BY s.scheduled_at, s.id LIMIT $4`

	return s.listSessions(ctx, query, clientID, string(domain.SessionPlanned), dbTime(since), limit)
}

func (s *Store) listSessions(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := scanSession(rows, &sess); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// TrainerSchedule lists planned sessions of the trainer's approved clients within [from, to].
func (s *Store) TrainerSchedule(ctx context.Context, trainerID int64, from, to time.Time) ([]domain.ScheduledSession, error) {
	query := `SELECT ` + sessionColumns + `, c.name
		FROM sessions s JOIN clients c ON c.id = s.client_id
		WHERE c.trainer_id = $1 AND c.status = $2 AND s.status = $3 AND s.scheduled_at BETWEEN $4 AND $5
		ORDER BY s.scheduled_at, s.id`

	rows, err := s.q.QueryContext(ctx, query, trainerID, string(domain.StatusApproved),
		string(domain.SessionPlanned), dbTime(from), dbTime(to))
	if err != nil {
		return nil, fmt.Errorf("trainer schedule: %w", err)
	}
	defer rows.Close()

	var result []domain.ScheduledSession
	for rows.Next() {
		var item domain.ScheduledSession
		if err := scanSession(rows, &item.Session, &item.ClientName); err != nil {
			return nil, fmt.Errorf("scan scheduled session: %w", err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// CountCompletedSince counts completed sessions of the trainer's approved clients scheduled
// at or after since.
func (s *Store) CountCompletedSince(ctx context.Context, trainerID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions s JOIN clients c ON c.id = s.client_id
		WHERE c.trainer_id = $1 AND c.status = $2 AND s.status = $3 AND s.scheduled_at >= $4`

	var count int
	err := s.q.QueryRowContext(ctx, query, trainerID, string(domain.StatusApproved),
		string(domain.SessionCompleted), dbTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return count, nil
}

// DueSessions selects planned sessions in [from, to] whose reminder flag is still clear,
// together with the chats of the client and the owning trainer. A trainer is the owner only
// while the client is approved; a pending request does not reveal the client's sessions.
func (s *Store) DueSessions(ctx context.Context, reminder domain.Reminder, from, to time.Time) ([]domain.DueSession, error) {
	flag, ok := reminderFlags[reminder]
	if !ok {
		return nil, fmt.Errorf("unknown reminder %q", reminder)
	}

	query := `SELECT ` + sessionColumns + `, c.name, c.chat_id, t.chat_id
		FROM sessions s
		JOIN clients c ON c.id = s.client_id
		LEFT JOIN trainers t ON t.id = c.trainer_id AND c.status = $4
		WHERE s.status = $1 AND s.` + flag + ` = FALSE AND s.scheduled_at BETWEEN $2 AND $3
		ORDER BY s.scheduled_at, s.id`

	rows, err := s.q.QueryContext(ctx, query, string(domain.SessionPlanned), dbTime(from), dbTime(to),
		string(domain.StatusApproved))
	if err != nil {
		return nil, fmt.Errorf("select due sessions: %w", err)
	}
	defer rows.Close()

	var result []domain.DueSession
	for rows.Next() {
		var (
			item          domain.DueSession
			clientChatID  sql.NullInt64
			trainerChatID sql.NullInt64
		)
		if err := scanSession(rows, &item.Session, &item.ClientName, &clientChatID, &trainerChatID); err != nil {
			return nil, fmt.Errorf("scan due session: %w", err)
		}
		item.ClientChatID = idPtr(clientChatID)
		item.TrainerChatID = idPtr(trainerChatID)
		result = append(result, item)
	}
	return result, rows.Err()
}

// MarkReminderSent sets the reminder flag once. It reports false when the flag was already set.
func (s *Store) MarkReminderSent(ctx context.Context, sessionID int64, reminder domain.Reminder) (bool, error) {
	flag, ok := reminderFlags[reminder]
	if !ok {
		return false, fmt.Errorf("unknown reminder %q", reminder)
	}

	query := `UPDATE sessions SET ` + flag + ` = TRUE WHERE id = $1 AND ` + flag + ` = FALSE`

	var marked bool
	err := s.InTx(ctx, func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx, query, sessionID)
		if err != nil {
			return fmt.Errorf("mark reminder: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark reminder: %w", err)
		}
		marked = affected > 0
		return nil
	})
	return marked, err
}

func scanSession(row rowScanner, sess *domain.Session, extra ...any) error {
	var (
		scheduledAt time.Time
		status      string
	)
	dest := append([]any{&sess.ID, &sess.ClientID, &scheduledAt, &status, &sess.Comment, &sess.Reminder24hSent, &sess.Reminder2hSent}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	sess.ScheduledAt = scheduledAt.UTC()
	sess.Status = domain.SessionStatus(status)
	return nil
}
