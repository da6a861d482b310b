package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/state"
)

const testChatID int64 = 42

type recorder struct {
	calls []string
	args  []string
}

func (r *recorder) handler(name string) handlers.Handler {
	return func(c telebot.Context) error {
		r.calls = append(r.calls, name)
		r.args = append(r.args, handlers.Args(c))
		return nil
	}
}

func newTestRouter(t *testing.T) (*Router, state.StateMachine, *recorder) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsm := state.NewStateMachine(state.NewMemoryStorage(clockwork.NewFakeClock()), log, nil)
	dispatcher := NewDispatcher(fsm, log)
	router := NewRouter(dispatcher, i18n.MustLoad("ru"), log)

	rec := &recorder{}
	router.RegisterCommand(command.Clients, rec.handler("clients"))
	router.RegisterCommand(command.Paid, rec.handler("paid"))
	router.RegisterCallback(keyboard.CallbackApprove, handlers.CallbackHandler(rec.handler("approve")))
	router.SetDefault(rec.handler("default"))
	dispatcher.RegisterStateHandler(state.StatePaymentAmount, rec.handler("payment_amount"))

	return router, fsm, rec
}

func textUpdate(text string) telebot.Context {
	return (*telebot.Bot)(nil).NewContext(telebot.Update{
		ID: 1,
		Message: &telebot.Message{
			Text:   text,
			Chat:   &telebot.Chat{ID: testChatID},
			Sender: &telebot.User{ID: testChatID},
		},
	})
}

func callbackUpdate(data string) telebot.Context {
	chat := &telebot.Chat{ID: testChatID}
	return (*telebot.Bot)(nil).NewContext(telebot.Update{
		ID: 2,
		Callback: &telebot.Callback{
			ID:      "cb",
			Data:    data,
			Sender:  &telebot.User{ID: testChatID},
			Message: &telebot.Message{Chat: chat},
		},
	})
}

func TestRouterCommands(t *testing.T) {
	menuClients := i18n.MustLoad("ru").Default().T("menu.clients")

	tests := []struct {
		name     string
		text     string
		wantCall string
		wantArgs string
	}{
		{name: "slash command", text: "/paid 3 1500 cash", wantCall: "paid", wantArgs: "3 1500 cash"},
		{name: "group suffix", text: "/clients@trainer_bot 2", wantCall: "clients", wantArgs: "2"},
		{name: "menu button", text: menuClients, wantCall: "clients", wantArgs: ""},
		{name: "unknown command", text: "/nope", wantCall: "default", wantArgs: ""},
		{name: "free text while idle", text: "hello", wantCall: "default", wantArgs: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, rec := newTestRouter(t)

			require.NoError(t, router.Route(textUpdate(tt.text)))
			require.Len(t, rec.calls, 1)
			assert.Equal(t, tt.wantCall, rec.calls[0])
			assert.Equal(t, tt.wantArgs, rec.args[0])
		})
	}
}

func TestRouterDispatchesFormStep(t *testing.T) {
	router, fsm, rec := newTestRouter(t)
	require.NoError(t, fsm.SetState(context.Background(), testChatID, state.StatePaymentAmount, map[string]string{
		state.KeyClientID: "3",
	}))

	require.NoError(t, router.Route(textUpdate("1500")))
	assert.Equal(t, []string{"payment_amount"}, rec.calls)

	// commands still win over the open form
	require.NoError(t, router.Route(textUpdate("/clients")))
	assert.Equal(t, []string{"payment_amount", "clients"}, rec.calls)
}

func TestRouterCallbacks(t *testing.T) {
	router, _, rec := newTestRouter(t)

	require.NoError(t, router.Route(callbackUpdate("approve:15")))
	assert.Equal(t, []string{"approve"}, rec.calls)
	assert.Equal(t, []string{"15"}, rec.args)

	require.NoError(t, router.Route(callbackUpdate("\fapprove:16")))
	assert.Equal(t, []string{"approve", "approve"}, rec.calls)
	assert.Equal(t, "16", rec.args[1])
}

func TestRouterMiddlewareOrder(t *testing.T) {
	router, _, rec := newTestRouter(t)

	var order []string
	mark := func(name string) handlers.Middleware {
		return func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}
	router.Use(mark("first"))
	router.Use(mark("second"))

	require.NoError(t, router.Route(textUpdate("/clients")))
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"clients"}, rec.calls)
}
