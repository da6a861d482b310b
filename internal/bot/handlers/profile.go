package handlers

import (
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/trainer-bot/internal/bot/keyboard"
	"github.com/Proton-105/trainer-bot/internal/domain"
	"github.com/Proton-105/trainer-bot/internal/geocode"
	"github.com/Proton-105/trainer-bot/internal/i18n"
	"github.com/Proton-105/trainer-bot/internal/state"
)

const maxCitySuggestions = 5

// Profile shows the trainer's card and starts the edit form.
func (h *Handlers) Profile(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	t := h.tr(c)
	if err := h.reply(c, profileCard(t, profile)); err != nil {
		return err
	}
	if err := h.start(c, state.StateProfileCity, nil); err != nil {
		return err
	}
	return h.ask(c, "profile.ask_city")
}

// ProfileCity takes the city. With geocoding on, ambiguous names get a pick list.
func (h *Handlers) ProfileCity(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	text := strings.TrimSpace(c.Text())
	if text == skipMark {
		return h.askPricing(c, profile.City)
	}

	places := h.suggest(c, text)
	switch len(places) {
	case 0:
		return h.askPricing(c, text)
	case 1:
		return h.askPricing(c, places[0].Name)
	}

	names := make([]string, len(places))
	labels := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
		labels[i] = p.Label()
	}
	if err := h.advance(c, state.StateProfileCity, map[string]string{state.KeyCities: strings.Join(names, "\n")}); err != nil {
		return err
	}
	return h.reply(c, h.tr(c).T("profile.pick_city"), keyboard.Choices(keyboard.CallbackCity, labels))
}

// CityChoice takes a city picked from the suggestion list.
func (h *Handlers) CityChoice(c telebot.Context) error {
	if _, ok, err := h.asTrainer(c); !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}
	if current == nil || current.CurrentState != state.StateProfileCity {
		return c.Respond()
	}

	names := strings.Split(current.Value(state.KeyCities), "\n")
	idx, err := strconv.Atoi(Args(c))
	if err != nil || idx < 0 || idx >= len(names) || names[idx] == "" {
		return c.Respond()
	}
	return h.askPricing(c, names[idx])
}

func (h *Handlers) askPricing(c telebot.Context, city string) error {
	if err := h.advance(c, state.StateProfilePricing, map[string]string{state.KeyCity: city}); err != nil {
		return err
	}
	return h.ask(c, "profile.ask_pricing")
}

// ProfilePricing takes the pricing text and saves the profile.
func (h *Handlers) ProfilePricing(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	current, err := h.current(c)
	if err != nil {
		return err
	}

	pricing := strings.TrimSpace(c.Text())
	if pricing == skipMark {
		pricing = profile.PricingText
	}

	updated, err := h.trainers.UpdateProfile(Context(c), profile.ID, current.Value(state.KeyCity), pricing)
	if err != nil {
		return err
	}
	h.finish(c)

	if actor := ActorOf(c); actor != nil {
		actor.Trainer = updated
	}
	t := h.tr(c)
	return h.menu(c, t.T("profile.saved")+"\n\n"+profileCard(t, updated))
}

// suggest looks the city up. Lookup failures degrade to the typed text.
func (h *Handlers) suggest(c telebot.Context, text string) []geocode.Place {
	if h.geocoder == nil {
		return nil
	}

	places, err := h.geocoder.Search(Context(c), text, h.tr(c).Lang())
	if err != nil {
		h.log.WarnContext(Context(c), "city lookup failed",
			slog.String("query", text),
			slog.Any("error", err),
		)
		return nil
	}
	if len(places) > maxCitySuggestions {
		places = places[:maxCitySuggestions]
	}
	return places
}

// Invite shows the trainer's invite code and deep link.
func (h *Handlers) Invite(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	t := h.tr(c)
	text := t.F("invite.show", "code", profile.InviteCode)
	if h.botUsername != "" {
		text += "\n" + t.F("invite.link", "link", "https://t.me/"+h.botUsername+"?start="+profile.InviteCode)
	}
	return h.reply(c, text)
}

// InviteNew replaces the trainer's invite code.
func (h *Handlers) InviteNew(c telebot.Context) error {
	profile, ok, err := h.asTrainer(c)
	if !ok {
		return err
	}

	code, err := h.trainers.RotateInviteCode(Context(c), profile.ID)
	if err != nil {
		return err
	}
	profile.InviteCode = code
	return h.reply(c, h.tr(c).F("invite.rotated", "code", code))
}

func profileCard(t i18n.Translator, profile *domain.Trainer) string {
	return t.F("profile.card",
		"name", profile.DisplayName,
		"city", orEmpty(t, profile.City),
		"pricing", orEmpty(t, profile.PricingText),
		"code", profile.InviteCode,
	)
}
