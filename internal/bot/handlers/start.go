package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
)

// Start greets the chat by role. A deep-link payload ("t.me/bot?start=CODE") is redeemed
// as an invite code.
func (h *Handlers) Start(c telebot.Context) error {
	if payload := Args(c); payload != "" {
		return h.redeem(c, payload)
	}

	t := h.tr(c)
	actor := ActorOf(c)
	switch actor.Role() {
	case keyboard.RoleTrainer:
		return h.menu(c, t.F("start.trainer", "name", actor.Trainer.DisplayName))
	case keyboard.RoleClient:
		return h.menu(c, t.F("start.client", "name", actor.Client.DisplayName()))
	default:
		return h.menu(c, t.T("start.guest"))
	}
}

// Help lists the commands available to the chat's role.
func (h *Handlers) Help(c telebot.Context) error {
	t := h.tr(c)
	switch ActorOf(c).Role() {
	case keyboard.RoleTrainer:
		return h.menu(c, t.T("help.trainer"))
	case keyboard.RoleClient:
		return h.menu(c, t.T("help.client"))
	default:
		return h.menu(c, t.T("help.guest"))
	}
}

// Cancel abandons the form in progress.
func (h *Handlers) Cancel(c telebot.Context) error {
	t := h.tr(c)

	current, err := h.current(c)
	if err != nil {
		return err
	}
	if current == nil {
		return h.menu(c, t.T("common.nothing_to_cancel"))
	}

	h.finish(c)
	return h.menu(c, t.T("common.cancelled"))
}

// Unknown answers text that is neither a command nor a form step.
func (h *Handlers) Unknown(c telebot.Context) error {
	return h.menu(c, h.tr(c).T("common.unknown"))
}

// TrainerRegister makes the chat a trainer.
func (h *Handlers) TrainerRegister(c telebot.Context) error {
	t := h.tr(c)

	name := Args(c)
	if name == "" {
		name = senderName(c)
	}

	profile, created, err := h.trainers.Register(Context(c), chatID(c), name)
	if err != nil {
		return err
	}
	if actor := ActorOf(c); actor != nil {
		actor.Trainer = profile
	}

	if !created {
		return h.menu(c, t.F("register.trainer_exists", "code", profile.InviteCode))
	}
	return h.menu(c, t.F("register.trainer_created", "code", profile.InviteCode))
}

// ClientRegister makes the chat an unaffiliated client.
func (h *Handlers) ClientRegister(c telebot.Context) error {
	t := h.tr(c)

	name := Args(c)
	if name == "" {
		name = senderName(c)
	}

	client, created, err := h.relations.RegisterClient(Context(c), chatID(c), name)
	if err != nil {
		return err
	}
	if actor := ActorOf(c); actor != nil {
		actor.Client = client
	}

	if !created {
		return h.menu(c, t.T("register.client_exists"))
	}
	return h.menu(c, t.T("register.client_created"))
}

