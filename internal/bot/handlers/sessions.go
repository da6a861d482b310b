package handlers

import (
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/state"
)

const defaultScheduleDays = 7

// AddSession plans a session from "<id> <date time> [comment]". With only a client id it
// asks for the rest.
func (h *Handlers) AddSession(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	if fields := strings.Fields(Args(c)); len(fields) == 1 {
		arg, err := command.ParseID(fields[0], "/add_session <id клиента>")
		if err != nil {
			return err
		}
		if _, err := h.relations.ClientCard(Context(c), profile.ID, arg.ID); err != nil {
			return err
		}
		if err := h.start(c, state.StateSessionWhen, map[string]string{state.KeyClientID: formatID(arg.ID)}); err != nil {
			return err
		}
		return h.ask(c, "session.ask_when")
	}

	args, err := command.ParseAddSession(Args(c), h.clock.Now(), h.ledger.Location())
	if err != nil {
		return err
	}
	return h.createSession(c, profile, args)
}

// SessionWhen takes the session date. Unparseable input keeps the step.
func (h *Handlers) SessionWhen(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	at, err := h.ledger.ParseWhen(c.Text())
	if err != nil {
		return err
	}
	if err := h.advance(c, state.StateSessionComment, map[string]string{state.KeyWhen: at.Format(time.RFC3339)}); err != nil {
		return err
	}
	return h.ask(c, "session.ask_comment")
}

// SessionComment completes the session form.
func (h *Handlers) SessionComment(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}

	arg, err := command.ParseID(current.Value(state.KeyClientID), "/add_session <id клиента>")
	if err != nil {
		h.finish(c)
		return err
	}
	at, err := time.Parse(time.RFC3339, current.Value(state.KeyWhen))
	if err != nil {
		h.finish(c)
		return err
	}

	return h.createSession(c, profile, command.AddSessionArgs{
		ClientID: arg.ID,
		When:     at,
		Comment:  optional(c.Text()),
	})
}

func (h *Handlers) createSession(c telebot.Context, profile *domain.Trainer, args command.AddSessionArgs) error {
	card, err := h.relations.ClientCard(Context(c), profile.ID, args.ClientID)
	if err != nil {
		return err
	}

	session, err := h.ledger.CreateSession(Context(c), profile.ID, args.ClientID, args.When, args.Comment)
	if err != nil {
		return err
	}
	h.finish(c)

	t := h.tr(c)
	text := t.F("session.created",
		"id", session.ID,
		"client", card.Client.DisplayName(),
		"when", h.when(session.ScheduledAt),
	)
	return h.reply(c, text, keyboard.CompleteSession(t, session.ID))
}

// Schedule lists planned sessions for the next days.
func (h *Handlers) Schedule(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseDays(Args(c), defaultScheduleDays)
	if err != nil {
		return err
	}

	sessions, err := h.ledger.Schedule(Context(c), profile.ID, arg.Days)
	if err != nil {
		return err
	}

	t := h.tr(c)
	if len(sessions) == 0 {
		return h.reply(c, t.T("session.schedule_empty"))
	}

	var b strings.Builder
	b.WriteString(t.F("session.schedule_header", "days", arg.Days))
	for _, s := range sessions {
		b.WriteString("\n" + t.F("session.schedule_line",
			"id", s.ID,
			"when", h.when(s.ScheduledAt),
			"client", s.ClientName,
			"comment", suffix(s.Comment),
		))
	}
	return h.reply(c, b.String())
}

// CompleteSession marks a session done. Works as "/complete_session <id>" and as a callback.
func (h *Handlers) CompleteSession(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/complete_session <id тренировки>")
	if err != nil {
		return err
	}

	session, err := h.ledger.CompleteSession(Context(c), profile.ID, arg.ID)
	if err != nil {
		return err
	}

	text := h.tr(c).F("session.completed", "id", session.ID)
	if c.Callback() != nil {
		_ = c.Respond()
		return c.Edit(text)
	}
	return c.Send(text)
}
