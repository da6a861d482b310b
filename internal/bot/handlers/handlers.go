// Package handlers implements the bot's commands, inline callbacks and form steps.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/dateparse"
	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/geocode"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/ledger"
	"github.com/Proton-105/trainer-bot/internal/relationship"
	"github.com/Proton-105/trainer-bot/internal/state"
	"github.com/Proton-105/trainer-bot/internal/trainer"
)

const (
	defaultPageSize = 5
	skipMark        = "-"
)

// Deps are the services the handlers call.
type Deps struct {
	Trainers  *trainer.Service
	Relations *relationship.Service
	Ledger    *ledger.Service
	FSM       state.StateMachine
	Texts     *i18n.Manager
	// Geocoder suggests canonical city names in the profile form. Nil disables suggestions.
	Geocoder geocode.Searcher
	Clock    clockwork.Clock
	Log      *slog.Logger
	PageSize int
	// BotUsername builds t.me invite links. Empty omits the link.
	BotUsername string
}

// Handlers holds the dependencies shared by every handler.
type Handlers struct {
	trainers    *trainer.Service
	relations   *relationship.Service
	ledger      *ledger.Service
	fsm         state.StateMachine
	texts       *i18n.Manager
	geocoder    geocode.Searcher
	clock       clockwork.Clock
	log         *slog.Logger
	pageSize    int
	botUsername string
}

// New wires handlers over deps.
func New(deps Deps) *Handlers {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.PageSize <= 0 {
		deps.PageSize = defaultPageSize
	}

	return &Handlers{
		trainers:    deps.Trainers,
		relations:   deps.Relations,
		ledger:      deps.Ledger,
		fsm:         deps.FSM,
		texts:       deps.Texts,
		geocoder:    deps.Geocoder,
		clock:       deps.Clock,
		log:         deps.Log,
		pageSize:    deps.PageSize,
		botUsername: deps.BotUsername,
	}
}

// tr returns the translator for the update's actor.
func (h *Handlers) tr(c telebot.Context) i18n.Translator {
	if actor := ActorOf(c); actor != nil && actor.T != nil {
		return actor.T
	}
	return h.texts.Default()
}

func chatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

func senderName(c telebot.Context) string {
	sender := c.Sender()
	if sender == nil {
		return ""
	}
	return strings.TrimSpace(sender.FirstName + " " + sender.LastName)
}

// asTrainer returns the actor's trainer profile. When the chat is not a trainer it replies
// with a hint and reports false.
func (h *Handlers) asTrainer(c telebot.Context) (*domain.Trainer, bool, error) {
	if actor := ActorOf(c); actor != nil && actor.Trainer != nil {
		return actor.Trainer, true, nil
	}
	return nil, false, h.reply(c, h.tr(c).T("common.need_trainer"))
}

// asClient is asTrainer for clients.
func (h *Handlers) asClient(c telebot.Context) (*domain.Client, bool, error) {
	if actor := ActorOf(c); actor != nil && actor.Client != nil {
		return actor.Client, true, nil
	}
	return nil, false, h.reply(c, h.tr(c).T("common.need_client"))
}

// ensureClient registers the chat as a client when it is not one yet.
func (h *Handlers) ensureClient(c telebot.Context) (*domain.Client, error) {
	actor := ActorOf(c)
	if actor != nil && actor.Client != nil {
		return actor.Client, nil
	}

	client, _, err := h.relations.RegisterClient(Context(c), chatID(c), senderName(c))
	if err != nil {
		return nil, err
	}
	if actor != nil {
		actor.Client = client
	}
	return client, nil
}

// reply answers a pending callback query and sends text to the chat.
func (h *Handlers) reply(c telebot.Context, text string, opts ...interface{}) error {
	if c.Callback() != nil {
		_ = c.Respond()
	}
	return c.Send(text, opts...)
}

// menu replies with text and the actor's main menu.
func (h *Handlers) menu(c telebot.Context, text string) error {
	return h.reply(c, text, keyboard.MainMenu(h.tr(c), ActorOf(c).Role()))
}

// ask prompts for the next form field with a cancel button.
func (h *Handlers) ask(c telebot.Context, key string) error {
	t := h.tr(c)
	return h.reply(c, t.T(key), keyboard.Cancel(t))
}

// start begins a form, replacing any form in progress.
func (h *Handlers) start(c telebot.Context, st state.State, values map[string]string) error {
	if err := h.fsm.SetState(Context(c), chatID(c), st, values); err != nil {
		return fmt.Errorf("start %s: %w", st, err)
	}
	return nil
}

// advance moves the form to its next step.
func (h *Handlers) advance(c telebot.Context, st state.State, values map[string]string) error {
	err := h.fsm.TransitionTo(Context(c), chatID(c), st, values)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, state.ErrInvalidTransition):
		return apperrors.NewStateError(err.Error())
	default:
		return fmt.Errorf("advance to %s: %w", st, err)
	}
}

// finish ends the chat's form.
func (h *Handlers) finish(c telebot.Context) {
	if err := h.fsm.ClearState(Context(c), chatID(c)); err != nil {
		h.log.WarnContext(Context(c), "failed to clear form state",
			slog.Int64("chat_id", chatID(c)),
			slog.Any("error", err),
		)
	}
}

// current returns the chat's form state, or nil when idle.
func (h *Handlers) current(c telebot.Context) (*state.ChatState, error) {
	st, err := h.fsm.GetState(Context(c), chatID(c))
	if errors.Is(err, state.ErrStateNotFound) {
		return nil, nil
	}
	return st, err
}

// optional maps the skip mark to an empty value.
func optional(text string) string {
	text = strings.TrimSpace(text)
	if text == skipMark {
		return ""
	}
	return text
}

// when formats t in the zone users type dates in.
func (h *Handlers) when(t time.Time) string {
	return dateparse.Format(t, h.ledger.Location())
}

func orEmpty(t i18n.Translator, value string) string {
	if strings.TrimSpace(value) == "" {
		return t.T("common.empty")
	}
	return value
}

// suffix renders an optional trailing detail such as a comment.
func suffix(value string) string {
	if value == "" {
		return ""
	}
	return " · " + value
}
