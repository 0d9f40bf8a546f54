package models

import (
	"errors"
	"time"
)

const (
	DefaultOrderListLimit = 20
	MaxOrderListLimit     = 100

	// ConfirmationWindow is how long the shop has to confirm a Processing order.
	ConfirmationWindow = 24 * time.Hour
	// UrgencyThreshold flags orders with this much time or less left.
	UrgencyThreshold = 12 * time.Hour
)

// OrderFilter has AND semantics across fields. Search matches order number, customer name/email/phone.
type OrderFilter struct {
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	Search        string
	Limit         int
	Offset        int
	// RankAt puts Processing orders first, urgent ones by nearest deadline, measured at this
	// instant. Zero keeps newest-first.
	RankAt time.Time
}

func (f OrderFilter) Validate() error {
	if f.Limit < 1 || f.Limit > MaxOrderListLimit {
		return errors.New("limit must be between 1 and 100")
	}
	if f.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	return nil
}
