// Package dateparse turns user-typed session dates into UTC instants.
package dateparse

import (
	"strings"
	"time"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

// Layout is how dates are echoed back to users.
const Layout = "02.01.2006 15:04"

const hint = "Пример: 12.08.2025 18:00 или 12.08 18:00"

var fullLayouts = []string{
	"2.1.2006 15:04",
	"2.1.06 15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

var yearlessLayouts = []string{
	"2.1 15:04",
	"2/1 15:04",
}

var relativeDays = map[string]int{
	"сегодня":     0,
	"today":       0,
	"завтра":      1,
	"tomorrow":    1,
	"послезавтра": 2,
}

// Parse reads text as a wall-clock time in loc and returns it in UTC.
// A missing year means the year of now. Anything unrecognised is an InvalidInput error.
func Parse(text string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, apperrors.NewInvalidInputError("Укажите дату и время. " + hint)
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}

	for _, layout := range fullLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t.UTC(), nil
		}
	}

	local := now.In(loc)
	for _, layout := range yearlessLayouts {
		if parsed, err := time.ParseInLocation(layout, text, loc); err == nil {
			// the layout parses in year 0, a leap year; 29.02 must not roll over to 1 March
			t := time.Date(local.Year(), parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
			if t.Month() != parsed.Month() || t.Day() != parsed.Day() {
				return time.Time{}, apperrors.NewInvalidInputError("Такой даты нет в этом году. " + hint)
			}
			return t.UTC(), nil
		}
	}

	if word, clock, ok := strings.Cut(text, " "); ok {
		if offset, found := relativeDays[strings.ToLower(word)]; found {
			if hm, err := time.Parse("15:04", clock); err == nil {
				day := local.AddDate(0, 0, offset)
				t := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
				return t.UTC(), nil
			}
		}
	}

	return time.Time{}, apperrors.NewInvalidInputError("Не удалось распознать дату. " + hint)
}

// ParsePrefix parses the date at the head of fields and reports how many fields it used.
// Two-field forms ("12.08 18:00") win over one-field forms ("2025-08-12T18:00").
func ParsePrefix(fields []string, now time.Time, loc *time.Location) (time.Time, int, error) {
	if len(fields) >= 2 {
		if t, err := Parse(fields[0]+" "+fields[1], now, loc); err == nil {
			return t, 2, nil
		}
	}
	if len(fields) >= 1 {
		if t, err := Parse(fields[0], now, loc); err == nil {
			return t, 1, nil
		}
	}

	_, err := Parse(strings.Join(fields, " "), now, loc)
	if err == nil {
		err = apperrors.NewInvalidInputError("Не удалось распознать дату. " + hint)
	}
	return time.Time{}, 0, err
}

// Format renders t in loc using Layout.
func Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(Layout)
}
