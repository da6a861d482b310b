package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/i18n"
)

// Role selects which main menu a chat sees.
type Role int

const (
	RoleGuest Role = iota
	RoleTrainer
	RoleClient
)

var menus = map[Role][][]command.Name{
	RoleGuest: {
		{command.TrainerRegister, command.ClientRegister},
		{command.Help},
	},
	RoleTrainer: {
		{command.Clients, command.Pending},
		{command.Schedule, command.Debts},
		{command.Stats, command.Tariffs},
		{command.Profile, command.Invite},
	},
	RoleClient: {
		{command.Me, command.Tariffs},
		{command.Trainers, command.Join},
		{command.Leave, command.Help},
	},
}

// MainMenu builds a localized reply keyboard for role.
func MainMenu(t i18n.Translator, role Role) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	rows := make([]telebot.Row, 0, len(menus[role]))
	for _, names := range menus[role] {
		buttons := make([]telebot.Btn, 0, len(names))
		for _, name := range names {
			buttons = append(buttons, markup.Text(menuLabel(t, name)))
		}
		rows = append(rows, markup.Row(buttons...))
	}
	markup.Reply(rows...)

	return markup
}

// MenuCommand maps a pressed menu button back to its command.
func MenuCommand(t i18n.Translator, text string) (command.Name, bool) {
	for _, rows := range menus {
		for _, names := range rows {
			for _, name := range names {
				if menuLabel(t, name) == text {
					return name, true
				}
			}
		}
	}
	return "", false
}

func menuLabel(t i18n.Translator, name command.Name) string {
	return translated(t, "menu."+string(name), name.Slash())
}
