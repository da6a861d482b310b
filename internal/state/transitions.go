package state

// validTransitions contains the permitted form steps.
var validTransitions = map[State][]State{
	StateIdle: {
		StateAddClientName,
		StateProfileCity,
		StateTariffTitle,
		StateSessionWhen,
		StatePaymentAmount,
		StateInviteCode,
		StateBrowsingTrainers,
	},
	StateAddClientName:     {StateAddClientPhone},
	StateAddClientPhone:    {StateAddClientNotes},
	StateProfileCity:       {StateProfileCity, StateProfilePricing},
	StateTariffTitle:       {StateTariffDescription},
	StateTariffDescription: {StateTariffPrice},
	StateSessionWhen:       {StateSessionComment},
	StatePaymentAmount:     {StatePaymentNote},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
// Idle and error are reachable from anywhere.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
