// Package bot wires the Telegram transport to the trainer CRM handlers.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/handlers"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	errors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/idempotency"
	"github.com/Proton-105/trainer-bot/internal/middleware"
	"github.com/Proton-105/trainer-bot/internal/state"
	"github.com/Proton-105/trainer-bot/pkg/config"
)

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot            *telebot.Bot
	log                *slog.Logger
	cfg                config.Config
	fsm                state.StateMachine
	texts              *i18n.Manager
	rateLimitMw        *middleware.RateLimitMiddleware
	router             *Router
	dispatcher         *Dispatcher
	errHandler         *errors.Handler
	idempotencyManager idempotency.Manager
}

// Options carries the collaborators of the bot besides its transport settings.
type Options struct {
	Handlers    handlers.Deps
	Idempotency idempotency.Manager
	RateLimit   *middleware.RateLimitMiddleware
	ErrHandler  *errors.Handler
}

// NewTelebot creates the Telegram client for the configured transport. Polling is the
// default; webhook mode listens on cfg.WebhookListen and registers cfg.WebhookURL.
func NewTelebot(cfg config.BotConfig) (*telebot.Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Token,
	}

	if cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}
	return tb, nil
}

// New wires routing, middlewares and handlers onto tb.
func New(tb *telebot.Bot, cfg config.Config, log *slog.Logger, opts Options) *Bot {
	if log == nil {
		log = slog.Default()
	}

	errHandler := opts.ErrHandler
	if errHandler == nil {
		errHandler = errors.NewHandler(log, cfg.Sentry.Enabled)
	}

	deps := opts.Handlers
	if deps.Log == nil {
		deps.Log = log
	}
	if deps.PageSize == 0 {
		deps.PageSize = cfg.Bot.PageSize
	}
	if deps.BotUsername == "" && tb != nil && tb.Me != nil {
		deps.BotUsername = tb.Me.Username
	}

	dispatcher := NewDispatcher(deps.FSM, log)
	router := NewRouter(dispatcher, deps.Texts, log)

	b := &Bot{
		telebot:            tb,
		log:                log,
		cfg:                cfg,
		fsm:                deps.FSM,
		texts:              deps.Texts,
		rateLimitMw:        opts.RateLimit,
		router:             router,
		dispatcher:         dispatcher,
		errHandler:         errHandler,
		idempotencyManager: opts.Idempotency,
	}

	b.setupRouter(deps)

	if b.telebot != nil && b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b
}

// Start publishes the command menu and runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot == nil {
		return
	}

	b.publishCommands()
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Route passes one update through the router. Exposed for the webhook path and tests.
func (b *Bot) Route(c telebot.Context) error {
	return b.router.Route(c)
}

func (b *Bot) setupRouter(deps handlers.Deps) {
	idempotencyTTL := b.cfg.Idempotency.TTL
	if idempotencyTTL <= 0 {
		idempotencyTTL = 10 * time.Minute
	}

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(CorrelationMiddleware)
	if b.idempotencyManager != nil {
		b.router.Use(middleware.Idempotency(b.idempotencyManager, idempotencyTTL, b.log))
	}
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(ActorMiddleware(deps.Trainers, deps.Relations, deps.Texts, b.log))
	b.router.Use(middleware.Metrics)

	h := handlers.New(deps)

	commands := map[command.Name]handlers.Handler{
		command.Start:           h.Start,
		command.Help:            h.Help,
		command.Cancel:          h.Cancel,
		command.TrainerRegister: h.TrainerRegister,
		command.ClientRegister:  h.ClientRegister,
		command.Profile:         h.Profile,
		command.Invite:          h.Invite,
		command.InviteNew:       h.InviteNew,
		command.AddClient:       h.AddClient,
		command.Clients:         h.Clients,
		command.Client:          h.ClientCard,
		command.Pending:         h.Pending,
		command.Approve:         h.Approve,
		command.Reject:          h.Reject,
		command.DeleteClient:    h.DeleteClient,
		command.AddSession:      h.AddSession,
		command.Schedule:        h.Schedule,
		command.CompleteSession: h.CompleteSession,
		command.Paid:            h.Paid,
		command.Debts:           h.Debts,
		command.Stats:           h.Stats,
		command.Tariffs:         h.Tariffs,
		command.AddTariff:       h.AddTariff,
		command.DeleteTariff:    h.DeleteTariff,
		command.Trainers:        h.Trainers,
		command.Join:            h.Join,
		command.Leave:           h.Leave,
		command.Me:              h.Me,
	}
	for name, handler := range commands {
		b.router.RegisterCommand(name, handler)
	}

	callbacks := map[string]handlers.CallbackHandler{
		keyboard.CallbackApprove:      h.Approve,
		keyboard.CallbackReject:       h.Reject,
		keyboard.CallbackClientsPage:  h.ClientsPage,
		keyboard.CallbackClientCard:   h.ClientCard,
		keyboard.CallbackTrainersPage: h.TrainersPage,
		keyboard.CallbackPickTrainer:  h.PickTrainer,
		keyboard.CallbackComplete:     h.CompleteSession,
		keyboard.CallbackCity:         h.CityChoice,
		keyboard.CallbackCancel:       h.Cancel,
	}
	for unique, handler := range callbacks {
		b.router.RegisterCallback(unique, handler)
	}

	steps := map[state.State]handlers.Handler{
		state.StateAddClientName:     h.AddClientName,
		state.StateAddClientPhone:    h.AddClientPhone,
		state.StateAddClientNotes:    h.AddClientNotes,
		state.StateProfileCity:       h.ProfileCity,
		state.StateProfilePricing:    h.ProfilePricing,
		state.StateTariffTitle:       h.TariffTitle,
		state.StateTariffDescription: h.TariffDescription,
		state.StateTariffPrice:       h.TariffPrice,
		state.StateSessionWhen:       h.SessionWhen,
		state.StateSessionComment:    h.SessionComment,
		state.StatePaymentAmount:     h.PaymentAmount,
		state.StatePaymentNote:       h.PaymentNote,
		state.StateInviteCode:        h.InviteCode,
		state.StateBrowsingTrainers:  h.BrowseCity,
	}
	for st, handler := range steps {
		b.dispatcher.RegisterStateHandler(st, handler)
	}

	b.router.SetDefault(h.Unknown)
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}

// menuCommands lists the commands shown in the Telegram command menu for one language.
func menuCommands(t i18n.Translator) []telebot.Command {
	out := make([]telebot.Command, 0, len(command.All))
	for _, name := range command.All {
		out = append(out, telebot.Command{
			Text:        string(name),
			Description: t.T("commands." + string(name)),
		})
	}
	return out
}

func (b *Bot) publishCommands() {
	if b.texts == nil {
		return
	}

	if err := b.telebot.SetCommands(menuCommands(b.texts.Default())); err != nil {
		b.log.Warn("failed to publish command menu", slog.Any("error", err))
	}
	for _, lang := range b.texts.Languages() {
		if err := b.telebot.SetCommands(menuCommands(b.texts.Translator(lang)), lang); err != nil {
			b.log.Warn("failed to publish command menu", slog.String("lang", lang), slog.Any("error", err))
		}
	}
}
