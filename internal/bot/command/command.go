// Package command decodes chat text into typed bot commands and their arguments.
package command

import (
	"strings"
)

// Name identifies a bot command without the leading slash.
type Name string

const (
	Start           Name = "start"
	Help            Name = "help"
	Cancel          Name = "cancel"
	TrainerRegister Name = "trainer_register"
	ClientRegister  Name = "client_register"
	Profile         Name = "profile"
	Invite          Name = "invite"
	InviteNew       Name = "invite_new"
	AddClient       Name = "add_client"
	Clients         Name = "clients"
	Client          Name = "client"
	Pending         Name = "pending"
	Approve         Name = "approve"
	Reject          Name = "reject"
	DeleteClient    Name = "delete_client"
	AddSession      Name = "add_session"
	Schedule        Name = "schedule"
	CompleteSession Name = "complete_session"
	Paid            Name = "paid"
	Debts           Name = "debts"
	Stats           Name = "stats"
	Tariffs         Name = "tariffs"
	AddTariff       Name = "add_tariff"
	DeleteTariff    Name = "delete_tariff"
	Trainers        Name = "trainers"
	Join            Name = "join"
	Leave           Name = "leave"
	Me              Name = "me"
)

// All lists every command in menu order.
var All = []Name{
	Start, Help, Cancel,
	TrainerRegister, ClientRegister,
	Profile, Invite, InviteNew,
	AddClient, Clients, Client, Pending, Approve, Reject, DeleteClient,
	AddSession, Schedule, CompleteSession,
	Paid, Debts, Stats,
	Tariffs, AddTariff, DeleteTariff,
	Trainers, Join, Leave, Me,
}

var known = func() map[Name]struct{} {
	m := make(map[Name]struct{}, len(All))
	for _, name := range All {
		m[name] = struct{}{}
	}
	return m
}()

// Slash returns the command as typed in chat.
func (n Name) Slash() string {
	return "/" + string(n)
}

// Known reports whether n is a registered command.
func (n Name) Known() bool {
	_, ok := known[n]
	return ok
}

// Command is a decoded command invocation.
type Command struct {
	Name Name
	// Args is the raw text after the command, trimmed.
	Args string
}

// Fields splits Args on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

// Parse decodes text that starts with a slash. The "@botname" suffix Telegram adds in group
// chats is dropped and the name is case-insensitive. Unknown commands still parse; callers
// check Known.
func Parse(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return Command{}, false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return Command{}, false
	}

	return Command{
		Name: Name(strings.ToLower(head)),
		Args: strings.TrimSpace(rest),
	}, true
}
