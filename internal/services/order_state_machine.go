package services

import (
	"strings"
	"time"

	"blockify-backend/internal/models"

	"github.com/samber/lo"
)

type transitionGuard func(order *models.Order, note string) error

// orderTransitions is the full status graph. Returned and Cancelled have no exits.
var orderTransitions = map[models.OrderStatus]map[models.OrderStatus]transitionGuard{
	models.OrderStatusProcessing: {
		models.OrderStatusShipping:  requirePaymentSettled,
		models.OrderStatusCancelled: nil,
	},
	models.OrderStatusShipping: {
		models.OrderStatusDelivered: nil,
		models.OrderStatusCancelled: nil,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusReturned: requireReason,
	},
}

// CanTransition reports whether the graph has an edge from -> to, ignoring guards.
func CanTransition(from, to models.OrderStatus) bool {
	_, ok := orderTransitions[from][to]
	return ok
}

// AllowedTransitions lists the statuses reachable from status in one step.
func AllowedTransitions(status models.OrderStatus) []models.OrderStatus {
	out := make([]models.OrderStatus, 0, len(orderTransitions[status]))
	for _, to := range []models.OrderStatus{
		models.OrderStatusShipping,
		models.OrderStatusDelivered,
		models.OrderStatusReturned,
		models.OrderStatusCancelled,
	} {
		if CanTransition(status, to) {
			out = append(out, to)
		}
	}
	return out
}

func requirePaymentSettled(order *models.Order, _ string) error {
	if order.PaymentStatus == models.PaymentStatusPaid || order.PaymentMethod == models.PaymentMethodCOD {
		return nil
	}
	return &TransitionError{
		Field:  "status",
		From:   string(order.Status),
		To:     string(models.OrderStatusShipping),
		Reason: "payment has not been verified",
	}
}

func requireReason(_ *models.Order, note string) error {
	if strings.TrimSpace(note) == "" {
		return newValidationError("reason", "is required for a return")
	}
	return nil
}

// OrderStatusStateMachine applies status changes to an in-memory order.
// It does no I/O; callers persist the order and the returned history entry together.
type OrderStatusStateMachine struct{}

// Transition moves order to newStatus. On error the order is left untouched.
func (OrderStatusStateMachine) Transition(order *models.Order, newStatus models.OrderStatus, note string, actorAdminID uint, at time.Time) (models.OrderStatusHistory, error) {
	if actorAdminID == 0 {
		return models.OrderStatusHistory{}, ErrUnauthorized
	}
	if _, err := models.ToOrderStatus(string(newStatus)); err != nil {
		return models.OrderStatusHistory{}, newValidationError("status", err.Error())
	}

	guard, ok := orderTransitions[order.Status][newStatus]
	if !ok {
		return models.OrderStatusHistory{}, &TransitionError{
			Field: "status",
			From:  string(order.Status),
			To:    string(newStatus),
		}
	}
	if guard != nil {
		if err := guard(order, note); err != nil {
			return models.OrderStatusHistory{}, err
		}
	}

	entry := models.OrderStatusHistory{
		OrderID:      order.ID,
		OldStatus:    order.Status,
		NewStatus:    newStatus,
		Note:         strings.TrimSpace(note),
		ActorAdminID: actorAdminID,
		At:           at,
	}
	order.Status = newStatus
	return entry, nil
}

// paymentTransitions covers manual payment status edits made without a proof.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending: {models.PaymentStatusPaid, models.PaymentStatusFailed},
	models.PaymentStatusFailed:  {models.PaymentStatusPaid, models.PaymentStatusPending},
	models.PaymentStatusPaid:    {models.PaymentStatusRefunded},
}

func canChangePayment(from, to models.PaymentStatus) bool {
	return lo.Contains(paymentTransitions[from], to)
}
