package dateparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

func TestParse(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		loc   *time.Location
		want  time.Time
	}{
		{name: "full date", input: "12.08.2027 18:00", loc: time.UTC, want: time.Date(2027, 8, 12, 18, 0, 0, 0, time.UTC)},
		{name: "short digits", input: "1.9.2027 7:05", loc: time.UTC, want: time.Date(2027, 9, 1, 7, 5, 0, 0, time.UTC)},
		{name: "two digit year", input: "12.08.27 18:00", loc: time.UTC, want: time.Date(2027, 8, 12, 18, 0, 0, 0, time.UTC)},
		{name: "iso", input: "2027-08-12 18:00", loc: time.UTC, want: time.Date(2027, 8, 12, 18, 0, 0, 0, time.UTC)},
		{name: "missing year uses current", input: "12.08 18:00", loc: time.UTC, want: time.Date(2026, 8, 12, 18, 0, 0, 0, time.UTC)},
		{name: "location applied", input: "20.10.2026 18:00", loc: moscow, want: time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)},
		{name: "tomorrow russian", input: "Завтра 10:30", loc: time.UTC, want: time.Date(2026, 10, 20, 10, 30, 0, 0, time.UTC)},
		{name: "today english", input: "today 21:00", loc: time.UTC, want: time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC)},
		{name: "extra spaces", input: "  12.08.2027   18:00 ", loc: time.UTC, want: time.Date(2027, 8, 12, 18, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input, now, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	for _, input := range []string{
		"", "someday", "31.02.2027 10:00", "12.08.2027 25:00", "завтра утром",
		"29.02 10:00", "29/2 10:00", "31.04 10:00",
	} {
		_, err := Parse(input, now, time.UTC)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, input)
	}
}

func TestParse_YearlessLeapDay(t *testing.T) {
	leapYear := time.Date(2028, 1, 10, 12, 0, 0, 0, time.UTC)
	got, err := Parse("29.02 10:00", leapYear, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2028, 2, 29, 10, 0, 0, 0, time.UTC), got)
}

func TestParsePrefix(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	got, used, err := ParsePrefix([]string{"12.08.2027", "18:00", "legs", "day"}, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
	assert.True(t, got.Equal(time.Date(2027, 8, 12, 18, 0, 0, 0, time.UTC)))

	got, used, err = ParsePrefix([]string{"2027-08-12T18:00", "legs"}, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
	assert.Equal(t, 18, got.Hour())

	_, _, err = ParsePrefix([]string{"soon", "please"}, now, time.UTC)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = ParsePrefix(nil, now, time.UTC)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "20.10.2026 18:00", Format(ts, time.FixedZone("MSK", 3*60*60)))
	assert.Equal(t, "20.10.2026 15:00", Format(ts, nil))
}
