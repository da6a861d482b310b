package keyboard

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/i18n"
)

// BindingRequest offers the trainer approve and reject buttons for a client.
func BindingRequest(t i18n.Translator, clientID int64) *telebot.ReplyMarkup {
	id := strconv.FormatInt(clientID, 10)
	return mustBuild(NewInlineKeyboard().AddRow(
		InlineButton{Text: translated(t, "buttons.approve", "✅"), Unique: CallbackApprove, Data: id},
		InlineButton{Text: translated(t, "buttons.reject", "❌"), Unique: CallbackReject, Data: id},
	))
}

// ClientList renders one button per client and pagination controls.
func ClientList(t i18n.Translator, clients []domain.Client, page, pages int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, c := range clients {
		kb.AddRow(InlineButton{
			Text:   c.DisplayName() + " · " + c.Balance.StringFixed(2),
			Unique: CallbackClientCard,
			Data:   strconv.FormatInt(c.ID, 10),
		})
	}
	if pages > 1 {
		kb.AddRow(PaginationButtons(t, CallbackClientsPage, page, pages)...)
	}
	return mustBuild(kb)
}

// TrainerDirectory renders a pick button per trainer and pagination controls.
func TrainerDirectory(t i18n.Translator, trainers []domain.Trainer, page, pages int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, tr := range trainers {
		label := tr.DisplayName
		if tr.City != "" {
			label += " · " + tr.City
		}
		kb.AddRow(InlineButton{
			Text:   label,
			Unique: CallbackPickTrainer,
			Data:   strconv.FormatInt(tr.ID, 10),
		})
	}
	if pages > 1 {
		kb.AddRow(PaginationButtons(t, CallbackTrainersPage, page, pages)...)
	}
	return mustBuild(kb)
}

// CompleteSession offers to mark a session as done.
func CompleteSession(t i18n.Translator, sessionID int64) *telebot.ReplyMarkup {
	return mustBuild(NewInlineKeyboard().AddRow(InlineButton{
		Text:   translated(t, "buttons.complete", "✔️"),
		Unique: CallbackComplete,
		Data:   strconv.FormatInt(sessionID, 10),
	}))
}

// Choices renders one button per label; the callback data is the label's index.
func Choices(unique string, labels []string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for i, label := range labels {
		kb.AddRow(InlineButton{Text: label, Unique: unique, Data: strconv.Itoa(i)})
	}
	return mustBuild(kb)
}

// Cancel is a single button that aborts the current form.
func Cancel(t i18n.Translator) *telebot.ReplyMarkup {
	return mustBuild(NewInlineKeyboard().AddRow(InlineButton{
		Text:   translated(t, "buttons.cancel", "✖️"),
		Unique: CallbackCancel,
	}))
}

// mustBuild is for keyboards whose payloads are short ids and cannot overflow.
func mustBuild(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		panic(err)
	}
	return markup
}
