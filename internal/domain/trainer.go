// Package domain holds the entities persisted by the store.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trainer is a registered coach owning a roster of clients.
type Trainer struct {
	ID          int64
	ChatID      int64
	DisplayName string
	City        string
	PricingText string
	InviteCode  string
	CreatedAt   time.Time
}

// Tariff is a priced offer published by a trainer.
type Tariff struct {
	ID          int64
	TrainerID   int64
	Title       string
	Description string
	Price       decimal.Decimal
}
