package port

import (
	"context"
	"errors"

	"blockify-backend/internal/events"
	"blockify-backend/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrStaleOrder = errors.New("order was modified concurrently")
	ErrStaleProof = errors.New("payment proof was already reviewed")
)

type OrderRepository interface {
	FindOrderByID(ctx context.Context, orderID string) (models.Order, error)
	FindOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	// SaveOrder writes status and payment status only if order.Version still matches,
	// and appends entry to the status history when it is non-nil.
	SaveOrder(ctx context.Context, order *models.Order, entry *models.OrderStatusHistory) error

	FindProofByID(ctx context.Context, proofID string) (models.PaymentProof, error)
	// ListProofs returns the order's proofs newest first.
	ListProofs(ctx context.Context, orderID string) ([]models.PaymentProof, error)
	CreateProof(ctx context.Context, proof *models.PaymentProof) error
	// SaveProof records a review; it fails with ErrStaleProof unless the stored proof is still pending.
	SaveProof(ctx context.Context, proof *models.PaymentProof) error

	// WithinTx runs fn against a repository bound to a single transaction.
	// Order and proof reads inside fn take row locks.
	WithinTx(ctx context.Context, fn func(tx OrderRepository) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, evts ...events.Event) error
}
