package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/trainer-bot/internal/bot/command"
	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/i18n"
)

func TestMainMenu(t *testing.T) {
	translator := i18n.MustLoad("ru").Default()

	markup := keyboard.MainMenu(translator, keyboard.RoleTrainer)
	require.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 4)
	assert.Len(t, markup.ReplyKeyboard[0], 2)

	for _, row := range markup.ReplyKeyboard {
		for _, btn := range row {
			name, ok := keyboard.MenuCommand(translator, btn.Text)
			assert.True(t, ok, btn.Text)
			assert.True(t, name.Known())
		}
	}

	clientMenu := keyboard.MainMenu(translator, keyboard.RoleClient)
	name, ok := keyboard.MenuCommand(translator, clientMenu.ReplyKeyboard[0][0].Text)
	require.True(t, ok)
	assert.Equal(t, command.Me, name)

	_, ok = keyboard.MenuCommand(translator, "что-то другое")
	assert.False(t, ok)
}
