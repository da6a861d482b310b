package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/trainer-bot/internal/dateparse"
	"github.com/Proton-105/trainer-bot/internal/domain"
	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AddClientArgs is "/add_client name; phone; notes".
type AddClientArgs struct {
	Name  string `validate:"required,max=128"`
	Phone string `validate:"max=32"`
	Notes string `validate:"max=1000"`
}

// AddSessionArgs is "/add_session <client_id> <date time> [comment]".
type AddSessionArgs struct {
	ClientID int64 `validate:"gt=0"`
	When     time.Time
	Comment  string `validate:"max=500"`
}

// PaidArgs is "/paid <client_id> <amount> [note]".
type PaidArgs struct {
	ClientID int64 `validate:"gt=0"`
	Amount   decimal.Decimal
	Note     string `validate:"max=500"`
}

// IDArg is a single positive numeric id.
type IDArg struct {
	ID int64 `validate:"gt=0"`
}

// DaysArg is an optional reporting window in days.
type DaysArg struct {
	Days int `validate:"gte=1,lte=366"`
}

// CodeArg is an invite code.
type CodeArg struct {
	Code string `validate:"required,min=4,max=16,alphanum"`
}

// ParseAddClient reads "name; phone; notes". Phone and notes are optional.
func ParseAddClient(args string) (AddClientArgs, error) {
	parts := strings.SplitN(args, ";", 3)
	out := AddClientArgs{Name: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		out.Phone = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		out.Notes = strings.TrimSpace(parts[2])
	}
	if out.Name == "" {
		return out, usage("/add_client Имя; телефон; заметки")
	}
	return out, check(out)
}

// ParseAddSession reads "<client_id> <date time> [comment]" with dates in loc relative to now.
func ParseAddSession(args string, now time.Time, loc *time.Location) (AddSessionArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return AddSessionArgs{}, usage("/add_session <id клиента> <дд.мм.гггг чч:мм> [комментарий]")
	}

	id, err := parseID(fields[0])
	if err != nil {
		return AddSessionArgs{}, err
	}

	when, used, err := dateparse.ParsePrefix(fields[1:], now, loc)
	if err != nil {
		return AddSessionArgs{}, err
	}

	out := AddSessionArgs{
		ClientID: id,
		When:     when,
		Comment:  strings.Join(fields[1+used:], " "),
	}
	return out, check(out)
}

// ParsePaid reads "<client_id> <amount> [note]". Negative amounts are corrections.
func ParsePaid(args string) (PaidArgs, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return PaidArgs{}, usage("/paid <id клиента> <сумма> [заметка]")
	}

	id, err := parseID(fields[0])
	if err != nil {
		return PaidArgs{}, err
	}

	amount, err := domain.ParseAmount(fields[1])
	if err != nil {
		return PaidArgs{}, err
	}
	if amount.IsZero() {
		return PaidArgs{}, apperrors.NewInvalidInputError("Сумма не может быть нулевой")
	}

	out := PaidArgs{ClientID: id, Amount: amount, Note: strings.Join(fields[2:], " ")}
	return out, check(out)
}

// ParseID reads exactly one id.
func ParseID(args, usageText string) (IDArg, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return IDArg{}, usage(usageText)
	}
	id, err := parseID(fields[0])
	if err != nil {
		return IDArg{}, err
	}
	return IDArg{ID: id}, nil
}

// ParseDays reads an optional day count, returning def when args is empty.
func ParseDays(args string, def int) (DaysArg, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return DaysArg{Days: def}, nil
	}
	days, err := strconv.Atoi(args)
	if err != nil {
		return DaysArg{}, apperrors.NewInvalidInputError("Количество дней должно быть числом")
	}
	out := DaysArg{Days: days}
	return out, check(out)
}

// ParseCode reads an invite code. Case and surrounding spaces are ignored.
func ParseCode(args string) (CodeArg, error) {
	out := CodeArg{Code: strings.ToUpper(strings.TrimSpace(args))}
	if out.Code == "" {
		return out, usage("/join <код приглашения>")
	}
	return out, check(out)
}

// ParsePage reads an optional page number, defaulting to 1.
func ParsePage(text string) int {
	page, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func parseID(text string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(text, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInputError("Номер должен быть положительным числом")
	}
	return id, nil
}

func usage(text string) error {
	return apperrors.NewInvalidInputError("Использование: " + text)
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperrors.FromValidation(err)
	}
	return nil
}
