package handlers

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/state"
	"github.com/Proton-105/trainer-bot/internal/trainer"
)

// Trainers opens the directory, optionally filtered by the city given as argument. The filter
// is kept in the conversation state for paging.
func (h *Handlers) Trainers(c telebot.Context) error {
	city := strings.TrimSpace(Args(c))
	if err := h.start(c, state.StateBrowsingTrainers, map[string]string{state.KeyCity: city}); err != nil {
		return err
	}

	page, err := h.trainers.Directory(Context(c), city, 1, h.pageSize)
	if err != nil {
		return err
	}

	t := h.tr(c)
	if page.Total == 0 {
		h.finish(c)
		return h.reply(c, t.T("directory.empty"))
	}
	return h.reply(c, directoryHeader(t, page), directoryMarkup(t, page))
}

// BrowseCity re-filters the open directory by the typed city.
func (h *Handlers) BrowseCity(c telebot.Context) error {
	SetArgs(c, c.Text())
	return h.Trainers(c)
}

// TrainersPage flips the directory message to another page.
func (h *Handlers) TrainersPage(c telebot.Context) error {
	current, err := h.current(c)
	if err != nil {
		return err
	}

	city := ""
	if current != nil && current.CurrentState == state.StateBrowsingTrainers {
		city = current.Value(state.KeyCity)
	}

	page, err := h.trainers.Directory(Context(c), city, command.ParsePage(Args(c)), h.pageSize)
	if err != nil {
		return err
	}

	t := h.tr(c)
	_ = c.Respond()
	return c.Edit(directoryHeader(t, page), directoryMarkup(t, page))
}

func directoryHeader(t i18n.Translator, page *trainer.DirectoryPage) string {
	if page.City != "" {
		return t.F("directory.header_city", "city", page.City, "total", page.Total)
	}
	return t.F("directory.header", "total", page.Total)
}

func directoryMarkup(t i18n.Translator, page *trainer.DirectoryPage) *telebot.ReplyMarkup {
	return keyboard.TrainerDirectory(t, page.Trainers, page.Page, page.Pages)
}

// PickTrainer sends a binding request to the trainer picked in the directory.
func (h *Handlers) PickTrainer(c telebot.Context) error {
	arg, err := command.ParseID(Args(c), "/trainers")
	if err != nil {
		return err
	}
	if _, err := h.ensureClient(c); err != nil {
		return err
	}

	target, err := h.relations.RequestBinding(Context(c), chatID(c), arg.ID)
	if err != nil {
		return err
	}
	h.finish(c)

	return h.menu(c, h.tr(c).F("directory.requested", "name", target.DisplayName))
}

// Join redeems "/join <code>", or asks for the code without arguments.
func (h *Handlers) Join(c telebot.Context) error {
	if Args(c) == "" {
		if err := h.start(c, state.StateInviteCode, nil); err != nil {
			return err
		}
		return h.ask(c, "join.ask_code")
	}
	return h.redeem(c, Args(c))
}

// InviteCode takes the code typed after /join.
func (h *Handlers) InviteCode(c telebot.Context) error {
	return h.redeem(c, c.Text())
}

func (h *Handlers) redeem(c telebot.Context, text string) error {
	arg, err := command.ParseCode(text)
	if err != nil {
		return err
	}
	if _, err := h.ensureClient(c); err != nil {
		return err
	}

	target, err := h.relations.RedeemInviteCode(Context(c), chatID(c), arg.Code)
	if err != nil {
		return err
	}
	h.finish(c)

	return h.menu(c, h.tr(c).F("join.joined", "name", target.DisplayName))
}

// Leave ends the client's binding to their trainer.
func (h *Handlers) Leave(c telebot.Context) error {
	if _, ok, err := h.asClient(c); !ok {
		return err
	}

	former, err := h.relations.LeaveTrainer(Context(c), chatID(c))
	if err != nil {
		return err
	}
	return h.menu(c, h.tr(c).F("leave.done", "name", former.DisplayName))
}

// Me shows the client's balance, trainer and upcoming sessions.
func (h *Handlers) Me(c telebot.Context) error {
	if _, ok, err := h.asClient(c); !ok {
		return err
	}

	profile, err := h.relations.MyProfile(Context(c), chatID(c))
	if err != nil {
		return err
	}

	t := h.tr(c)
	trainerName, status := t.T("me.no_trainer"), t.T("common.empty")
	if profile.Trainer != nil {
		trainerName = profile.Trainer.DisplayName
		status = t.T("me.status." + string(profile.Client.Status))
	}

	var b strings.Builder
	b.WriteString(t.F("me.card",
		"name", profile.Client.DisplayName(),
		"balance", profile.Client.Balance.StringFixed(2),
		"trainer", trainerName,
		"status", status,
	))

	b.WriteString("\n\n")
	if len(profile.Upcoming) == 0 {
		b.WriteString(t.T("me.upcoming_empty"))
	} else {
		b.WriteString(t.T("me.upcoming"))
		for _, s := range profile.Upcoming {
			b.WriteString("\n" + h.when(s.ScheduledAt) + suffix(s.Comment))
		}
	}
	return h.reply(c, b.String())
}
