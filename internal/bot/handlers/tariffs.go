package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/state"
)

// Tariffs lists the trainer's own tariffs, or for a client those of their trainer.
func (h *Handlers) Tariffs(c telebot.Context) error {
	t := h.tr(c)
	actor := ActorOf(c)

	var trainerID int64
	switch {
	case actor != nil && actor.Trainer != nil:
		trainerID = actor.Trainer.ID
	case actor != nil && actor.Client != nil:
		if actor.Client.TrainerID == nil {
			return h.reply(c, t.T("tariffs.no_trainer"))
		}
		trainerID = *actor.Client.TrainerID
	default:
		return h.reply(c, t.T("common.need_client"))
	}

	tariffs, err := h.trainers.ListTariffs(Context(c), trainerID)
	if err != nil {
		return err
	}
	return h.reply(c, renderTariffs(t, tariffs))
}

func renderTariffs(t i18n.Translator, tariffs []domain.Tariff) string {
	if len(tariffs) == 0 {
		return t.T("tariffs.empty")
	}

	var b strings.Builder
	b.WriteString(t.T("tariffs.header"))
	for _, tariff := range tariffs {
		description := ""
		if tariff.Description != "" {
			description = "\n   " + tariff.Description
		}
		b.WriteString("\n" + t.F("tariffs.line",
			"id", tariff.ID,
			"title", tariff.Title,
			"price", tariff.Price.StringFixed(2),
			"description", description,
		))
	}
	return b.String()
}

// AddTariff starts the tariff form.
func (h *Handlers) AddTariff(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	if err := h.start(c, state.StateTariffTitle, nil); err != nil {
		return err
	}
	return h.ask(c, "tariffs.ask_title")
}

// TariffTitle is the first step of the tariff form.
func (h *Handlers) TariffTitle(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	title := strings.TrimSpace(c.Text())
	if title == "" || title == skipMark {
		return h.ask(c, "tariffs.ask_title")
	}
	if err := h.advance(c, state.StateTariffDescription, map[string]string{state.KeyTitle: title}); err != nil {
		return err
	}
	return h.ask(c, "tariffs.ask_description")
}

// TariffDescription is the second step of the tariff form.
func (h *Handlers) TariffDescription(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	if err := h.advance(c, state.StateTariffPrice, map[string]string{state.KeyDesc: optional(c.Text())}); err != nil {
		return err
	}
	return h.ask(c, "tariffs.ask_price")
}

// TariffPrice completes the tariff form. An invalid price keeps the step.
func (h *Handlers) TariffPrice(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}

	tariff, err := h.trainers.AddTariff(Context(c), profile.ID,
		current.Value(state.KeyTitle), current.Value(state.KeyDesc), c.Text())
	if err != nil {
		return err
	}
	h.finish(c)

	return h.menu(c, h.tr(c).F("tariffs.added", "id", tariff.ID, "title", tariff.Title))
}

// DeleteTariff removes one of the trainer's tariffs.
func (h *Handlers) DeleteTariff(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	arg, err := command.ParseID(Args(c), "/delete_tariff <id тарифа>")
	if err != nil {
		return err
	}

	if err := h.trainers.DeleteTariff(Context(c), profile.ID, arg.ID); err != nil {
		return err
	}
	return h.reply(c, h.tr(c).T("tariffs.deleted"))
}
