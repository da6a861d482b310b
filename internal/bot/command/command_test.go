package command

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Command
		ok    bool
	}{
		{name: "bare", input: "/clients", want: Command{Name: Clients}, ok: true},
		{name: "with args", input: "/paid 5 2500 за март", want: Command{Name: Paid, Args: "5 2500 за март"}, ok: true},
		{name: "bot suffix", input: "/Start@trainer_bot ABCD2345", want: Command{Name: Start, Args: "ABCD2345"}, ok: true},
		{name: "newline after name", input: "/add_client\nАнна; +7900", want: Command{Name: AddClient, Args: "Анна; +7900"}, ok: true},
		{name: "plain text", input: "hello", ok: false},
		{name: "lone slash", input: "/", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNameKnown(t *testing.T) {
	assert.True(t, Paid.Known())
	assert.False(t, Name("buy").Known())
	assert.Equal(t, "/add_session", AddSession.Slash())
}

func TestParseAddClient(t *testing.T) {
	args, err := ParseAddClient("Анна Петрова; +79001234567; колено")
	require.NoError(t, err)
	assert.Equal(t, AddClientArgs{Name: "Анна Петрова", Phone: "+79001234567", Notes: "колено"}, args)

	args, err = ParseAddClient("Борис")
	require.NoError(t, err)
	assert.Equal(t, "Борис", args.Name)
	assert.Empty(t, args.Phone)

	_, err = ParseAddClient(" ; +7900")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParseAddSession(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		want    AddSessionArgs
		wantErr bool
	}{
		{
			name:  "full date with comment",
			input: "12 20.10.2026 18:30 ноги и спина",
			want:  AddSessionArgs{ClientID: 12, When: time.Date(2026, 10, 20, 18, 30, 0, 0, time.UTC), Comment: "ноги и спина"},
		},
		{
			name:  "yearless",
			input: "#3 25.12 07:00",
			want:  AddSessionArgs{ClientID: 3, When: time.Date(2026, 12, 25, 7, 0, 0, 0, time.UTC)},
		},
		{
			name:  "relative",
			input: "4 завтра 10:00",
			want:  AddSessionArgs{ClientID: 4, When: time.Date(2026, 10, 20, 10, 0, 0, 0, time.UTC)},
		},
		{name: "bad date", input: "4 someday", wantErr: true},
		{name: "bad id", input: "abc 20.10.2026 18:30", wantErr: true},
		{name: "missing date", input: "4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddSession(tt.input, now, time.UTC)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.ClientID, got.ClientID)
			assert.True(t, tt.want.When.Equal(got.When), "got %s", got.When)
			assert.Equal(t, tt.want.Comment, got.Comment)
		})
	}
}

func TestParsePaid(t *testing.T) {
	args, err := ParsePaid("7 -500,50 возврат")
	require.NoError(t, err)
	assert.Equal(t, int64(7), args.ClientID)
	assert.True(t, args.Amount.Equal(decimal.RequireFromString("-500.5")))
	assert.Equal(t, "возврат", args.Note)

	for _, bad := range []string{"7", "7 abc", "7 0", "7 1.234", "x 100"} {
		_, err := ParsePaid(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, bad)
	}
}

func TestParseSmallArgs(t *testing.T) {
	id, err := ParseID("42", "/client <id>")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.ID)

	_, err = ParseID("", "/client <id>")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = ParseID("1 2", "/client <id>")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	days, err := ParseDays("", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, days.Days)
	days, err = ParseDays("7", 30)
	require.NoError(t, err)
	assert.Equal(t, 7, days.Days)
	_, err = ParseDays("1000", 30)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	code, err := ParseCode(" abcd2345 ")
	require.NoError(t, err)
	assert.Equal(t, "ABCD2345", code.Code)
	_, err = ParseCode("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = ParseCode("ab-cd")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	assert.Equal(t, 3, ParsePage("3"))
	assert.Equal(t, 1, ParsePage("zero"))
}
