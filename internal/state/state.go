package state

import "time"

// State represents a step of a multi-step conversation.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next command.
	StateIdle State = "idle"

	// StateAddClientName waits for the new client's name.
	StateAddClientName State = "add_client_name"
	// StateAddClientPhone waits for the new client's phone.
	StateAddClientPhone State = "add_client_phone"
	// StateAddClientNotes waits for optional notes about the new client.
	StateAddClientNotes State = "add_client_notes"

	// StateProfileCity waits for the trainer's city.
	StateProfileCity State = "profile_city"
	// StateProfilePricing waits for the trainer's free-text pricing.
	StateProfilePricing State = "profile_pricing"

	// StateTariffTitle waits for a tariff title.
	StateTariffTitle State = "tariff_title"
	// StateTariffDescription waits for a tariff description.
	StateTariffDescription State = "tariff_description"
	// StateTariffPrice waits for a tariff price.
	StateTariffPrice State = "tariff_price"

	// StateSessionWhen waits for the date and time of a new session.
	StateSessionWhen State = "session_when"
	// StateSessionComment waits for an optional session comment.
	StateSessionComment State = "session_comment"

	// StatePaymentAmount waits for a payment amount.
	StatePaymentAmount State = "payment_amount"
	// StatePaymentNote waits for an optional payment note.
	StatePaymentNote State = "payment_note"

	// StateInviteCode waits for a client to type an invite code.
	StateInviteCode State = "invite_code"
	// StateBrowsingTrainers keeps the directory filter while a client pages through trainers.
	StateBrowsingTrainers State = "browsing_trainers"

	// StateError indicates that the conversation failed and requires recovery.
	StateError State = "error"
)

// Context keys shared by the form handlers.
const (
	KeyClientID = "client_id"
	KeyName     = "name"
	KeyPhone    = "phone"
	KeyCity     = "city"
	KeyTitle    = "title"
	KeyDesc     = "description"
	KeyWhen     = "when"
	KeyAmount   = "amount"
	KeyCities   = "cities"
)

// ChatState captures the conversation step of a single chat.
type ChatState struct {
	ChatID       int64             `json:"chat_id"`
	CurrentState State             `json:"current_state"`
	Context      map[string]string `json:"context"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Value returns a collected form field or an empty string.
func (s *ChatState) Value(key string) string {
	if s == nil || s.Context == nil {
		return ""
	}
	return s.Context[key]
}
