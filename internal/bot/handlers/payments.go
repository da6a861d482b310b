package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
	"github.com/Proton-105/trainer-bot/internal/ledger"
	"github.com/Proton-105/trainer-bot/internal/state"
)

// Paid records a payment from "<id> <amount> [note]". With only a client id it asks for the rest.
func (h *Handlers) Paid(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	if fields := strings.Fields(Args(c)); len(fields) == 1 {
		arg, err := command.ParseID(fields[0], "/paid <id клиента>")
		if err != nil {
			return err
		}
		if _, err := h.relations.ClientCard(Context(c), profile.ID, arg.ID); err != nil {
			return err
		}
		if err := h.start(c, state.StatePaymentAmount, map[string]string{state.KeyClientID: formatID(arg.ID)}); err != nil {
			return err
		}
		return h.ask(c, "payment.ask_amount")
	}

	args, err := command.ParsePaid(Args(c))
	if err != nil {
		return err
	}
	return h.recordPayment(c, profile, args)
}

// PaymentAmount takes the amount. Invalid amounts keep the step.
func (h *Handlers) PaymentAmount(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	amount, err := domain.ParseAmount(c.Text())
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return apperrors.NewInvalidInputError("Сумма не может быть нулевой")
	}
	if err := h.advance(c, state.StatePaymentNote, map[string]string{state.KeyAmount: amount.String()}); err != nil {
		return err
	}
	return h.ask(c, "payment.ask_note")
}

// PaymentNote completes the payment form.
func (h *Handlers) PaymentNote(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}

	arg, err := command.ParseID(current.Value(state.KeyClientID), "/paid <id клиента>")
	if err != nil {
		h.finish(c)
		return err
	}
	amount, err := domain.ParseAmount(current.Value(state.KeyAmount))
	if err != nil {
		h.finish(c)
		return err
	}

	return h.recordPayment(c, profile, command.PaidArgs{
		ClientID: arg.ID,
		Amount:   amount,
		Note:     optional(c.Text()),
	})
}

func (h *Handlers) recordPayment(c telebot.Context, profile *domain.Trainer, args command.PaidArgs) error {
	card, err := h.relations.ClientCard(Context(c), profile.ID, args.ClientID)
	if err != nil {
		return err
	}

	result, err := h.ledger.RecordPayment(Context(c), profile.ID, args.ClientID, args.Amount, args.Note)
	if err != nil {
		return err
	}
	h.finish(c)

	return h.menu(c, h.tr(c).F("payment.recorded",
		"client", card.Client.DisplayName(),
		"amount", result.Payment.Amount.StringFixed(2),
		"balance", result.Balance.StringFixed(2),
	))
}

// Debts lists clients with a negative balance.
func (h *Handlers) Debts(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	debtors, err := h.ledger.Debts(Context(c), profile.ID)
	if err != nil {
		return err
	}

	t := h.tr(c)
	if len(debtors) == 0 {
		return h.reply(c, t.T("debts.empty"))
	}

	var b strings.Builder
	b.WriteString(t.T("debts.header"))
	for _, client := range debtors {
		b.WriteString("\n" + t.F("debts.line",
			"name", client.DisplayName(),
			"id", client.ID,
			"balance", client.Balance.StringFixed(2),
		))
	}
	return h.reply(c, b.String())
}

// Stats reports completed sessions and income for the last days.
func (h *Handlers) Stats(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseDays(Args(c), ledger.DefaultDays)
	if err != nil {
		return err
	}

	stats, err := h.ledger.Stats(Context(c), profile.ID, arg.Days)
	if err != nil {
		return err
	}

	return h.reply(c, h.tr(c).F("stats.report",
		"days", stats.Days,
		"sessions", stats.CompletedSessions,
		"income", stats.Income.StringFixed(2),
	))
}
