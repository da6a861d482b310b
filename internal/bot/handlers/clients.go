package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/relationship"
	"github.com/Proton-105/trainer-bot/internal/state"
)

// AddClient adds a client from "name; phone; notes", or starts the form without arguments.
func (h *Handlers) AddClient(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	if Args(c) == "" {
		if err := h.start(c, state.StateAddClientName, nil); err != nil {
			return err
		}
		return h.ask(c, "clients.ask_name")
	}

	args, err := command.ParseAddClient(Args(c))
	if err != nil {
		return err
	}
	return h.addClient(c, profile, args)
}

// AddClientName is the first step of the add-client form.
func (h *Handlers) AddClientName(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	name := strings.TrimSpace(c.Text())
	if name == "" || name == skipMark {
		return h.ask(c, "clients.ask_name")
	}
	if err := h.advance(c, state.StateAddClientPhone, map[string]string{state.KeyName: name}); err != nil {
		return err
	}
	return h.ask(c, "clients.ask_phone")
}

// AddClientPhone is the second step of the add-client form.
func (h *Handlers) AddClientPhone(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	if err := h.advance(c, state.StateAddClientNotes, map[string]string{state.KeyPhone: optional(c.Text())}); err != nil {
		return err
	}
	return h.ask(c, "clients.ask_notes")
}

// AddClientNotes completes the add-client form.
func (h *Handlers) AddClientNotes(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}

	return h.addClient(c, profile, command.AddClientArgs{
		Name:  current.Value(state.KeyName),
		Phone: current.Value(state.KeyPhone),
		Notes: optional(c.Text()),
	})
}

func (h *Handlers) addClient(c telebot.Context, profile *domain.Trainer, args command.AddClientArgs) error {
	client, err := h.relations.AddClient(Context(c), profile.ID, args.Name, args.Phone, args.Notes)
	if err != nil {
		return err
	}
	h.finish(c)
	return h.menu(c, h.tr(c).F("clients.added", "name", client.DisplayName(), "id", client.ID))
}

// Clients lists the roster, one page at a time.
func (h *Handlers) Clients(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	page, err := h.relations.ListClients(Context(c), profile.ID, command.ParsePage(Args(c)), h.pageSize)
	if err != nil {
		return err
	}

	t := h.tr(c)
	if page.Total == 0 {
		return h.reply(c, t.T("clients.empty"))
	}
	return h.reply(c, t.F("clients.header", "total", page.Total), clientListMarkup(t, page))
}

// ClientsPage flips the roster message to another page.
func (h *Handlers) ClientsPage(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	page, err := h.relations.ListClients(Context(c), profile.ID, command.ParsePage(Args(c)), h.pageSize)
	if err != nil {
		return err
	}

	t := h.tr(c)
	_ = c.Respond()
	return c.Edit(t.F("clients.header", "total", page.Total), clientListMarkup(t, page))
}

func clientListMarkup(t i18n.Translator, page *relationship.ClientPage) *telebot.ReplyMarkup {
	return keyboard.ClientList(t, page.Clients, page.Page, page.Pages)
}

// ClientCard shows one client with recent history. Works as "/client <id>" and as a callback.
func (h *Handlers) ClientCard(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/client <id клиента>")
	if err != nil {
		return err
	}

	card, err := h.relations.ClientCard(Context(c), profile.ID, arg.ID)
	if err != nil {
		return err
	}
	return h.reply(c, h.renderCard(h.tr(c), card))
}

func (h *Handlers) renderCard(t i18n.Translator, card *relationship.Card) string {
	client := card.Client

	var b strings.Builder
	if card.Pending {
		b.WriteString(t.F("card.header_pending",
			"name", client.DisplayName(),
			"id", client.ID,
			"phone", orEmpty(t, client.Phone),
			"notes", orEmpty(t, client.Notes),
		))
		return b.String()
	}

	b.WriteString(t.F("card.header",
		"name", client.DisplayName(),
		"id", client.ID,
		"phone", orEmpty(t, client.Phone),
		"notes", orEmpty(t, client.Notes),
		"balance", client.Balance.StringFixed(2),
	))

	if len(card.Sessions) == 0 && len(card.Payments) == 0 {
		b.WriteString("\n\n" + t.T("card.no_history"))
		return b.String()
	}

	if len(card.Sessions) > 0 {
		b.WriteString("\n\n" + t.T("card.sessions"))
		for _, s := range card.Sessions {
			b.WriteString("\n" + t.F("card.session_line",
				"id", s.ID,
				"when", h.when(s.ScheduledAt),
				"status", t.T("session.status."+string(s.Status)),
				"comment", suffix(s.Comment),
			))
		}
	}

	if len(card.Payments) > 0 {
		b.WriteString("\n\n" + t.T("card.payments"))
		for _, p := range card.Payments {
			b.WriteString("\n" + t.F("card.payment_line",
				"when", h.when(p.OccurredAt),
				"amount", p.Amount.StringFixed(2),
				"note", suffix(p.Note),
			))
		}
	}

	return b.String()
}

// Pending lists binding requests, each with approve and reject buttons.
func (h *Handlers) Pending(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	clients, err := h.relations.ListPending(Context(c), profile.ID)
	if err != nil {
		return err
	}

	t := h.tr(c)
	if len(clients) == 0 {
		return h.reply(c, t.T("clients.pending_empty"))
	}

	if err := h.reply(c, t.F("clients.pending_header", "count", len(clients))); err != nil {
		return err
	}
	for _, client := range clients {
		line := t.F("clients.pending_line", "name", client.DisplayName(), "id", client.ID)
		if err := c.Send(line, keyboard.BindingRequest(t, client.ID)); err != nil {
			return err
		}
	}
	return nil
}

// Approve accepts a pending client. Works as "/approve <id>" and as a callback.
func (h *Handlers) Approve(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/approve <id клиента>")
	if err != nil {
		return err
	}

	client, err := h.relations.Approve(Context(c), profile.ID, arg.ID)
	if err != nil {
		return err
	}
	return h.decided(c, h.tr(c).F("clients.approved", "name", client.DisplayName()))
}

// Reject declines a pending client. Works as "/reject <id>" and as a callback.
func (h *Handlers) Reject(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/reject <id клиента>")
	if err != nil {
		return err
	}

	client, err := h.relations.Reject(Context(c), profile.ID, arg.ID)
	if err != nil {
		return err
	}
	return h.decided(c, h.tr(c).F("clients.rejected", "name", client.DisplayName()))
}

// decided replaces the request message when the decision came from its buttons.
func (h *Handlers) decided(c telebot.Context, text string) error {
	if c.Callback() != nil {
		_ = c.Respond()
		return c.Edit(text)
	}
	return c.Send(text)
}

// DeleteClient removes a client and their history from the roster.
func (h *Handlers) DeleteClient(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/delete_client <id клиента>")
	if err != nil {
		return err
	}

	client, err := h.relations.DeleteClient(Context(c), profile.ID, arg.ID)
	if err != nil {
		return err
	}
	return h.reply(c, h.tr(c).F("clients.deleted", "name", client.DisplayName()))
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
