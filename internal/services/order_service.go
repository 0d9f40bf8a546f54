package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/events"
	"blockify-backend/internal/models"
	"blockify-backend/internal/payment"
	"blockify-backend/internal/port"
	"blockify-backend/pkg/logger"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type AdminOrderServiceConfig struct {
	Repo      port.OrderRepository
	Publisher port.EventPublisher
	QR        *PaymentQRService
	Metrics   *Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// AdminOrderService runs every admin use case as one transaction over a single order.
// Callers must pass an authenticated admin; the service only checks the role.
type AdminOrderService struct {
	repo      port.OrderRepository
	publisher port.EventPublisher
	qr        *PaymentQRService
	proofs    *PaymentProofWorkflow
	machine   OrderStatusStateMachine
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewAdminOrderService(cfg AdminOrderServiceConfig) *AdminOrderService {
	s := &AdminOrderService{
		repo:      cfg.Repo,
		publisher: cfg.Publisher,
		qr:        cfg.QR,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		now:       cfg.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NoopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if s.log == nil {
		s.log = logger.Named("orders")
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.proofs = NewPaymentProofWorkflow(s.repo, s.now)
	return s
}

func (s *AdminOrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]OrderView, int64, error) {
	if filter.Limit == 0 {
		filter.Limit = models.DefaultOrderListLimit
	}
	if err := filter.Validate(); err != nil {
		return nil, 0, newValidationError("filter", err.Error())
	}

	now := s.now()
	filter.RankAt = now
	orders, total, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		s.fail("list_orders", "", auth.Principal{}, err)
		return nil, 0, err
	}

	views := lo.Map(orders, func(o models.Order, _ int) OrderView {
		return newOrderView(o, now)
	})
	RankOrders(views)
	return views, total, nil
}

func (s *AdminOrderService) GetOrder(ctx context.Context, orderID string) (OrderView, error) {
	order, err := findOrder(ctx, s.repo, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return newOrderView(order, s.now()), nil
}

// CreateOrder records a manual order on behalf of a customer.
func (s *AdminOrderService) CreateOrder(ctx context.Context, in NewOrderInput, admin auth.Principal) (OrderView, error) {
	if !admin.IsAdmin() {
		return OrderView{}, ErrUnauthorized
	}
	order, err := s.insertOrder(ctx, in)
	if err != nil {
		s.fail("create_order", order.ID, admin, err)
		return OrderView{}, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("admin_id", admin.UserID),
	)
	s.publish(ctx, events.New(events.TypeOrderCreated, &order, admin.UserID, s.now(), map[string]any{
		"totalAmount":   order.TotalAmount.String(),
		"paymentMethod": order.PaymentMethod,
	}))
	return s.GetOrder(ctx, order.ID)
}

// insertOrder retries with a fresh number when a generated one collides. A duplicate
// number chosen by the caller is a validation error.
func (s *AdminOrderService) insertOrder(ctx context.Context, in NewOrderInput) (models.Order, error) {
	generated := strings.TrimSpace(in.OrderNumber) == ""
	for attempt := 1; ; attempt++ {
		order, err := BuildOrder(in, s.now())
		if err != nil {
			return models.Order{}, err
		}
		err = s.repo.CreateOrder(ctx, &order)
		switch {
		case err == nil:
			return order, nil
		case !errors.Is(err, port.ErrDuplicate):
			return order, err
		case !generated:
			return order, newValidationError("orderNumber", "already exists")
		case attempt >= orderNumberAttempts:
			return order, fmt.Errorf("allocate order number after %d attempts: %w", attempt, err)
		}
		s.log.Warn("generated order number collided, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
	}
}

// UpdateStatus applies one edge of the status graph.
func (s *AdminOrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, note string, admin auth.Principal) (OrderView, error) {
	return s.mutate(ctx, "update_status", orderID, admin, func(tx port.OrderRepository) ([]events.Event, error) {
		order, err := findOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		evt, err := s.transition(ctx, tx, &order, status, note, admin.UserID)
		if err != nil {
			return nil, err
		}
		return []events.Event{evt}, nil
	})
}

// CancelOrder moves a Processing or Shipping order to Cancelled. Payment status is left as is.
func (s *AdminOrderService) CancelOrder(ctx context.Context, orderID, reason string, admin auth.Principal) (OrderView, error) {
	return s.mutate(ctx, "cancel_order", orderID, admin, func(tx port.OrderRepository) ([]events.Event, error) {
		order, err := findOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		evt, err := s.transition(ctx, tx, &order, models.OrderStatusCancelled, reason, admin.UserID)
		if err != nil {
			return nil, err
		}
		return []events.Event{evt}, nil
	})
}

// ProcessRefund returns a delivered order and marks a paid order refunded.
func (s *AdminOrderService) ProcessRefund(ctx context.Context, orderID, reason string, admin auth.Principal) (OrderView, error) {
	return s.mutate(ctx, "process_refund", orderID, admin, func(tx port.OrderRepository) ([]events.Event, error) {
		order, err := findOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}

		paidBefore := order.PaymentStatus
		if paidBefore == models.PaymentStatusPaid {
			order.PaymentStatus = models.PaymentStatusRefunded
		}
		evt, err := s.transition(ctx, tx, &order, models.OrderStatusReturned, reason, admin.UserID)
		if err != nil {
			return nil, err
		}

		evts := []events.Event{evt}
		if paidBefore != order.PaymentStatus {
			evts = append(evts, s.paymentEvent(&order, paidBefore, admin.UserID, ""))
		}
		return evts, nil
	})
}

type PaymentStatusUpdate struct {
	PaymentStatus string
	ProofID       string
	// ProofDecision is optional; it is derived from PaymentStatus when empty.
	ProofDecision string
}

// UpdatePaymentStatus either reviews a proof or, without one, edits the payment status by hand.
func (s *AdminOrderService) UpdatePaymentStatus(ctx context.Context, orderID string, upd PaymentStatusUpdate, admin auth.Principal) (OrderView, error) {
	target, err := models.ToPaymentStatus(upd.PaymentStatus)
	if err != nil {
		return OrderView{}, newValidationError("paymentStatus", err.Error())
	}

	if strings.TrimSpace(upd.ProofID) != "" {
		decision, err := decisionFor(target, upd.ProofDecision)
		if err != nil {
			return OrderView{}, err
		}
		return s.mutate(ctx, "review_proof", orderID, admin, func(tx port.OrderRepository) ([]events.Event, error) {
			review, err := s.proofs.review(ctx, tx, upd.ProofID, orderID, decision, admin.UserID)
			if err != nil {
				return nil, err
			}
			return s.reviewEvents(review, admin.UserID), nil
		})
	}

	return s.mutate(ctx, "update_payment_status", orderID, admin, func(tx port.OrderRepository) ([]events.Event, error) {
		order, err := findOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		before := order.PaymentStatus
		if !canChangePayment(before, target) {
			return nil, &TransitionError{Field: "paymentStatus", From: string(before), To: string(target)}
		}
		if target == models.PaymentStatusPaid && order.Status == models.OrderStatusCancelled {
			return nil, ErrOrderCancelled
		}

		order.PaymentStatus = target
		if err := saveOrder(ctx, tx, &order, nil, "paymentStatus", string(before), string(target)); err != nil {
			return nil, err
		}
		return []events.Event{s.paymentEvent(&order, before, admin.UserID, "")}, nil
	})
}

// ReviewProof reviews a proof by id alone.
func (s *AdminOrderService) ReviewProof(ctx context.Context, proofID string, decision ProofDecision, admin auth.Principal) (OrderView, error) {
	if !admin.IsAdmin() {
		return OrderView{}, ErrUnauthorized
	}
	review, err := s.proofs.ReviewProof(ctx, proofID, decision, admin.UserID)
	if err != nil {
		s.fail("review_proof", "", admin, err)
		return OrderView{}, err
	}
	s.committed("review_proof", review.Order.ID, admin)
	s.publish(ctx, s.reviewEvents(review, admin.UserID)...)
	return s.GetOrder(ctx, review.Order.ID)
}

// SubmitProof lets an admin attach transfer evidence received outside the storefront.
func (s *AdminOrderService) SubmitProof(ctx context.Context, orderID string, in SubmitProofInput, admin auth.Principal) (models.PaymentProof, error) {
	if !admin.IsAdmin() {
		return models.PaymentProof{}, ErrUnauthorized
	}
	proof, order, err := s.proofs.SubmitProof(ctx, orderID, admin.UserID, in)
	if err != nil {
		s.fail("submit_proof", orderID, admin, err)
		return models.PaymentProof{}, err
	}
	s.publish(ctx, proofSubmittedEvent(&order, proof, s.now()))
	return proof, nil
}

func (s *AdminOrderService) ListProofs(ctx context.Context, orderID string) ([]models.PaymentProof, error) {
	if _, err := findOrder(ctx, s.repo, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListProofs(ctx, orderID)
}

func (s *AdminOrderService) GeneratePaymentQR(ctx context.Context, orderID string) (payment.QR, error) {
	order, err := findOrder(ctx, s.repo, orderID)
	if err != nil {
		return payment.QR{}, err
	}
	return s.qr.ForOrder(&order)
}

// mutate runs fn in one transaction, publishes its events after commit and returns the fresh order.
func (s *AdminOrderService) mutate(ctx context.Context, useCase, orderID string, admin auth.Principal, fn func(tx port.OrderRepository) ([]events.Event, error)) (OrderView, error) {
	if !admin.IsAdmin() {
		s.fail(useCase, orderID, admin, ErrUnauthorized)
		return OrderView{}, ErrUnauthorized
	}

	var evts []events.Event
	err := s.repo.WithinTx(ctx, func(tx port.OrderRepository) error {
		var err error
		evts, err = fn(tx)
		return err
	})
	if err != nil {
		s.fail(useCase, orderID, admin, err)
		return OrderView{}, err
	}

	s.committed(useCase, orderID, admin)
	s.publish(ctx, evts...)
	return s.GetOrder(ctx, orderID)
}

func (s *AdminOrderService) transition(ctx context.Context, tx port.OrderRepository, order *models.Order, to models.OrderStatus, note string, actorID uint) (events.Event, error) {
	from := order.Status
	entry, err := s.machine.Transition(order, to, note, actorID, s.now())
	if err != nil {
		return events.Event{}, err
	}
	if err := saveOrder(ctx, tx, order, &entry, "status", string(from), string(to)); err != nil {
		return events.Event{}, err
	}
	return events.New(events.TypeOrderStatusChanged, order, actorID, entry.At, map[string]any{
		"from": from,
		"to":   to,
		"note": entry.Note,
	}), nil
}

func (s *AdminOrderService) paymentEvent(order *models.Order, before models.PaymentStatus, actorID uint, proofID string) events.Event {
	payload := map[string]any{
		"from": before,
		"to":   order.PaymentStatus,
	}
	if proofID != "" {
		payload["proofId"] = proofID
	}
	return events.New(events.TypePaymentStatusChanged, order, actorID, s.now(), payload)
}

func (s *AdminOrderService) reviewEvents(review ProofReview, actorID uint) []events.Event {
	reviewed := events.New(events.TypeProofReviewed, &review.Order, actorID, s.now(), map[string]any{
		"proofId": review.Proof.ID,
		"status":  review.Proof.Status,
	})
	return []events.Event{
		reviewed,
		s.paymentEvent(&review.Order, review.PaymentBefore, actorID, review.Proof.ID),
	}
}

func proofSubmittedEvent(order *models.Order, proof models.PaymentProof, at time.Time) events.Event {
	return events.New(events.TypeProofSubmitted, order, proof.UserID, at, map[string]any{
		"proofId":  proof.ID,
		"fileType": proof.FileType,
	})
}

func (s *AdminOrderService) publish(ctx context.Context, evts ...events.Event) {
	publishEvents(ctx, s.publisher, s.metrics, s.log, evts)
}

// publishEvents never fails the use case; the change is already committed.
func publishEvents(ctx context.Context, publisher port.EventPublisher, metrics *Metrics, log *zap.Logger, evts []events.Event) {
	for _, evt := range evts {
		metrics.Events.WithLabelValues(evt.Type).Inc()
	}
	if err := publisher.Publish(ctx, evts...); err != nil {
		log.Error("publish order events",
			zap.Int("count", len(evts)),
			zap.Error(err),
		)
	}
}

func (s *AdminOrderService) committed(useCase, orderID string, admin auth.Principal) {
	s.log.Info("order updated",
		zap.String("use_case", useCase),
		zap.String("order_id", orderID),
		zap.Uint("admin_id", admin.UserID),
	)
}

func (s *AdminOrderService) fail(useCase, orderID string, admin auth.Principal, err error) {
	kind := Classify(err)
	s.metrics.Failures.WithLabelValues(useCase, string(kind)).Inc()

	fields := []zap.Field{
		zap.String("use_case", useCase),
		zap.String("order_id", orderID),
		zap.Uint("admin_id", admin.UserID),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if kind == KindInternal {
		s.log.Error("order use case failed", fields...)
		return
	}
	s.log.Warn("order use case rejected", fields...)
}

// decisionFor checks that an explicit decision agrees with the requested payment status.
func decisionFor(target models.PaymentStatus, explicit string) (ProofDecision, error) {
	var implied ProofDecision
	switch target {
	case models.PaymentStatusPaid:
		implied = ProofDecisionAccept
	case models.PaymentStatusFailed:
		implied = ProofDecisionReject
	default:
		return "", newValidationError("paymentStatus", "must be paid or failed when reviewing a proof")
	}

	if strings.TrimSpace(explicit) == "" {
		return implied, nil
	}
	decision, err := ToProofDecision(explicit)
	if err != nil {
		return "", err
	}
	if decision != implied {
		return "", newValidationError("proofStatus", "contradicts paymentStatus")
	}
	return decision, nil
}
