package services

import (
	"context"
	"errors"
	"time"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/events"
	"blockify-backend/internal/models"
	"blockify-backend/internal/payment"
	"blockify-backend/internal/port"
	"blockify-backend/pkg/logger"

	"go.uber.org/zap"
)

type CustomerOrderServiceConfig struct {
	Repo      port.OrderRepository
	Publisher port.EventPublisher
	QR        *PaymentQRService
	Metrics   *Metrics
	Logger    *zap.Logger
	Now       func() time.Time
}

// CustomerOrderService serves a signed-in customer's own orders, addressed by order number.
// Orders owned by someone else are reported as not found.
type CustomerOrderService struct {
	repo      port.OrderRepository
	publisher port.EventPublisher
	qr        *PaymentQRService
	proofs    *PaymentProofWorkflow
	metrics   *Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewCustomerOrderService(cfg CustomerOrderServiceConfig) *CustomerOrderService {
	s := &CustomerOrderService{
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
		s.log = logger.Named("customer_orders")
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.proofs = NewPaymentProofWorkflow(s.repo, s.now)
	return s
}

func (s *CustomerOrderService) GetOrder(ctx context.Context, orderNumber string, user auth.Principal) (OrderView, error) {
	order, err := s.ownedOrder(ctx, orderNumber, user)
	if err != nil {
		return OrderView{}, err
	}
	return newOrderView(order, s.now()), nil
}

func (s *CustomerOrderService) PaymentQR(ctx context.Context, orderNumber string, user auth.Principal) (payment.QR, error) {
	order, err := s.ownedOrder(ctx, orderNumber, user)
	if err != nil {
		return payment.QR{}, err
	}
	return s.qr.ForOrder(&order)
}

func (s *CustomerOrderService) SubmitProof(ctx context.Context, orderNumber string, in SubmitProofInput, user auth.Principal) (models.PaymentProof, error) {
	order, err := s.ownedOrder(ctx, orderNumber, user)
	if err != nil {
		return models.PaymentProof{}, err
	}

	proof, locked, err := s.proofs.SubmitProof(ctx, order.ID, user.UserID, in)
	if err != nil {
		s.metrics.Failures.WithLabelValues("submit_proof", string(Classify(err))).Inc()
		s.log.Warn("payment proof rejected",
			zap.String("order_id", order.ID),
			zap.Uint("user_id", user.UserID),
			zap.Error(err),
		)
		return models.PaymentProof{}, err
	}

	s.log.Info("payment proof submitted",
		zap.String("order_id", order.ID),
		zap.String("proof_id", proof.ID),
		zap.Uint("user_id", user.UserID),
	)
	publishEvents(ctx, s.publisher, s.metrics, s.log, []events.Event{proofSubmittedEvent(&locked, proof, s.now())})
	return proof, nil
}

func (s *CustomerOrderService) ownedOrder(ctx context.Context, orderNumber string, user auth.Principal) (models.Order, error) {
	if user.UserID == 0 {
		return models.Order{}, ErrUnauthorized
	}
	order, err := s.repo.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if order.UserID != user.UserID && !user.IsAdmin() {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}
