package events

import (
	"time"

	"blockify-backend/internal/models"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated         = "order.created"
	TypeOrderStatusChanged   = "order.status_changed"
	TypePaymentStatusChanged = "order.payment_status_changed"
	TypeProofSubmitted       = "payment.proof_submitted"
	TypeProofReviewed        = "payment.proof_reviewed"
)

type Event struct {
	EventID     string         `json:"event_id"`
	Type        string         `json:"type"`
	OrderID     string         `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	ActorID     uint           `json:"actor_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func New(eventType string, order *models.Order, actorID uint, at time.Time, payload map[string]any) Event {
	return Event{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ActorID:     actorID,
		CreatedAt:   at.UTC(),
		Payload:     payload,
	}
}
