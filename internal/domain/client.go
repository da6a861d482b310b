package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/trainer-bot/internal/errors"
)

// ApprovalStatus tracks the trainer/client binding lifecycle.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// Client is a person training with a trainer. ChatID is nil for clients the trainer
// added by hand; TrainerID is nil while unaffiliated or after rejection.
type Client struct {
	ID        int64
	Name      string
	Phone     string
	Notes     string
	Balance   decimal.Decimal
	ChatID    *int64
	TrainerID *int64
	Status    ApprovalStatus
	CreatedAt time.Time
}

// OwnedBy reports whether trainerID is the client's current trainer.
func (c *Client) OwnedBy(trainerID int64) bool {
	return c != nil && c.TrainerID != nil && *c.TrainerID == trainerID
}

// Approved reports whether the client is an approved member of a roster.
func (c *Client) Approved() bool {
	return c != nil && c.Status == StatusApproved && c.TrainerID != nil
}

// HasChat reports whether the client is reachable through the bot.
func (c *Client) HasChat() bool {
	return c != nil && c.ChatID != nil
}

// CheckOwner returns a Forbidden error unless trainerID owns the client. The error
// carries nothing about the client itself.
func (c *Client) CheckOwner(trainerID int64) error {
	if !c.OwnedBy(trainerID) {
		return apperrors.NewForbiddenError(fmt.Sprintf("trainer %d does not own the client", trainerID))
	}
	return nil
}

// DisplayName falls back to the id for clients saved without a name.
func (c *Client) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Клиент %d", c.ID)
}
