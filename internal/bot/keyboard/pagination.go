package keyboard

import (
	"strconv"
	"strings"

	"github.com/Proton-105/trainer-bot/internal/i18n"
)

// PaginationButtons renders a "prev | page/total | next" row for a list message. Prev and next
// carry the target page under action; the indicator in the middle is inert, because editing a
// message to identical content is rejected by Telegram.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	totalPages = max(totalPages, 1)
	page = min(max(page, 1), totalPages)

	buttons := make([]InlineButton, 0, 3)
	if page > 1 {
		buttons = append(buttons, pageButton(translated(t, "pagination.prev", "◀️"), action, page-1))
	}
	buttons = append(buttons, InlineButton{
		Text:   paginationLabel(t, page, totalPages),
		Unique: CallbackNoop,
	})
	if page < totalPages {
		buttons = append(buttons, pageButton(translated(t, "pagination.next", "▶️"), action, page+1))
	}
	return buttons
}

func pageButton(text, action string, page int) InlineButton {
	return InlineButton{Text: text, Unique: action, Data: strconv.Itoa(page)}
}

// translated returns the catalog text for key, or fallback when the key is missing.
func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}
	if text := strings.TrimSpace(t.T(key)); text != "" && text != key {
		return text
	}
	return fallback
}

func paginationLabel(t i18n.Translator, page, total int) string {
	fallback := strconv.Itoa(page) + "/" + strconv.Itoa(total)
	if t == nil {
		return fallback
	}

	label := t.F("pagination.page", "page", page, "total", total)
	if label == "" || label == "pagination.page" || strings.Contains(label, "{") {
		return fallback
	}
	return label
}
