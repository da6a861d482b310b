package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
)

// Handler processes bot commands.
type Handler func(c telebot.Context) error

// CallbackHandler processes inline callback events.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// HandlerFunc adapts ordinary functions to the Handler interface.
type HandlerFunc func(c telebot.Context) error

// Handle executes the underlying function.
func (h HandlerFunc) Handle(c telebot.Context) error {
	return h(c)
}

// Keys under which the router and middlewares store per-update values on telebot.Context.
const (
	keyContext = "trainer.ctx"
	keyActor   = "trainer.actor"
	keyArgs    = "trainer.args"
)

// Actor is the chat an update came from, resolved to its trainer or client record.
type Actor struct {
	ChatID  int64
	Name    string
	Trainer *domain.Trainer
	Client  *domain.Client
	T       i18n.Translator
}

// Role selects the menu the actor sees. A chat registered both ways is treated as a trainer.
func (a *Actor) Role() keyboard.Role {
	switch {
	case a == nil:
		return keyboard.RoleGuest
	case a.Trainer != nil:
		return keyboard.RoleTrainer
	case a.Client != nil:
		return keyboard.RoleClient
	default:
		return keyboard.RoleGuest
	}
}

// SetContext attaches ctx to the update.
func SetContext(c telebot.Context, ctx context.Context) {
	c.Set(keyContext, ctx)
}

// Context returns the update's context, or context.Background when none was attached.
func Context(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(keyContext).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// SetActor attaches the resolved actor to the update.
func SetActor(c telebot.Context, actor *Actor) {
	c.Set(keyActor, actor)
}

// ActorOf returns the actor resolved for the update, or nil.
func ActorOf(c telebot.Context) *Actor {
	if c == nil {
		return nil
	}
	actor, _ := c.Get(keyActor).(*Actor)
	return actor
}

// SetArgs stores the command arguments or callback payload for the handler.
func SetArgs(c telebot.Context, args string) {
	c.Set(keyArgs, args)
}

// Args returns what SetArgs stored, or an empty string.
func Args(c telebot.Context) string {
	if c == nil {
		return ""
	}
	args, _ := c.Get(keyArgs).(string)
	return args
}
