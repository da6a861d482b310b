package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

// ParseAmount reads a money amount with at most two decimals. A comma works as the
// decimal separator. Sign is not checked.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, apperrors.NewInvalidInputError("Сумма должна быть числом, например 2500 или -500.50")
	}
	if !amount.Truncate(2).Equal(amount) {
		return decimal.Zero, apperrors.NewInvalidInputError("Не больше двух знаков после запятой")
	}
	return amount.Round(2), nil
}
