package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to add client", from: StateIdle, to: StateAddClientName, expected: true},
		{name: "name to phone", from: StateAddClientName, to: StateAddClientPhone, expected: true},
		{name: "phone to notes", from: StateAddClientPhone, to: StateAddClientNotes, expected: true},
		{name: "city re-prompt", from: StateProfileCity, to: StateProfileCity, expected: true},
		{name: "tariff title to description", from: StateTariffTitle, to: StateTariffDescription, expected: true},
		{name: "session when to comment", from: StateSessionWhen, to: StateSessionComment, expected: true},
		{name: "payment amount to note", from: StatePaymentAmount, to: StatePaymentNote, expected: true},
		{name: "idle to notes skips steps", from: StateIdle, to: StateAddClientNotes, expected: false},
		{name: "phone back to name", from: StateAddClientPhone, to: StateAddClientName, expected: false},
		{name: "cross form jump", from: StateTariffTitle, to: StatePaymentNote, expected: false},
		{name: "unknown state", from: State("unknown"), to: StateAddClientName, expected: false},
		{name: "any state to idle", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error", from: StatePaymentNote, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
