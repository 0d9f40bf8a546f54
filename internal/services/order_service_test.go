package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/events"
	"blockify-backend/internal/models"
	"blockify-backend/internal/port"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	in := newOrderInput(models.PaymentMethodBankTransfer)
	in.OrderNumber = "ORD-1001"
	created, err := env.admin.CreateOrder(ctx, in, testAdmin)
	require.NoError(t, err)
	orderID := created.Order.ID

	assert.True(t, created.Order.TotalAmount.Equal(decimal.NewFromInt(230000)))
	assert.True(t, created.Order.TotalMatches())

	qr, err := env.customer.PaymentQR(ctx, "ORD-1001", testCustomer)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1001", qr.Reference)

	proof, err := env.customer.SubmitProof(ctx, "ORD-1001", validProofInput(), testCustomer)
	require.NoError(t, err)
	view, err := env.admin.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, view.Order.PaymentStatus)

	env.clock.Advance(time.Hour)
	view, err = env.admin.UpdatePaymentStatus(ctx, orderID, PaymentStatusUpdate{
		PaymentStatus: "paid",
		ProofID:       proof.ID,
	}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, view.Order.PaymentStatus)

	view, err = env.admin.UpdateStatus(ctx, orderID, models.OrderStatusShipping, "confirmed", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipping, view.Order.Status)
	assert.Nil(t, view.Urgency)

	view, err = env.admin.UpdateStatus(ctx, orderID, models.OrderStatusDelivered, "", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, view.Order.Status)

	view, err = env.admin.ProcessRefund(ctx, orderID, "damaged", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReturned, view.Order.Status)
	assert.Equal(t, models.PaymentStatusRefunded, view.Order.PaymentStatus)
	assert.True(t, view.Order.TotalMatches())

	history := view.Order.StatusHistory
	require.Len(t, history, 3)
	wantSteps := [][2]models.OrderStatus{
		{models.OrderStatusProcessing, models.OrderStatusShipping},
		{models.OrderStatusShipping, models.OrderStatusDelivered},
		{models.OrderStatusDelivered, models.OrderStatusReturned},
	}
	for i, step := range wantSteps {
		assert.Equal(t, step[0], history[i].OldStatus, "entry %d", i)
		assert.Equal(t, step[1], history[i].NewStatus, "entry %d", i)
		assert.Equal(t, testAdmin.UserID, history[i].ActorAdminID)
	}
	assert.Equal(t, "damaged", history[2].Note)

	assert.Equal(t, []string{
		events.TypeOrderCreated,
		events.TypeProofSubmitted,
		events.TypeProofReviewed,
		events.TypePaymentStatusChanged,
		events.TypeOrderStatusChanged,
		events.TypeOrderStatusChanged,
		events.TypeOrderStatusChanged,
		events.TypePaymentStatusChanged,
	}, env.publisher.types())
}

func TestCancelAndRefundGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	delivered := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.Status = models.OrderStatusDelivered
	})
	_, err := env.admin.CancelOrder(ctx, delivered.ID, "too late", testAdmin)
	var terr *TransitionError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, "Delivered", terr.From)
	assert.Equal(t, "Cancelled", terr.To)

	processing := env.seedOrder(t, models.PaymentMethodBankTransfer, func(o *models.Order) {
		o.PaymentStatus = models.PaymentStatusPaid
	})
	before := env.reload(t, processing.ID)
	_, err = env.admin.ProcessRefund(ctx, processing.ID, "changed mind", testAdmin)
	require.True(t, errors.As(err, &terr), "got %v", err)

	after := env.reload(t, processing.ID)
	assert.Empty(t, cmp.Diff(before, after, orderCmpOpts), "a rejected refund leaves the order as it was")

	_, err = env.admin.ProcessRefund(ctx, delivered.ID, "", testAdmin)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr), "refund needs a reason, got %v", err)

	assert.Empty(t, env.publisher.types())
}

func TestCancelOrderKeepsPaymentStatus(t *testing.T) {
	env := newTestEnv(t)

	order := env.seedOrder(t, models.PaymentMethodBankTransfer, func(o *models.Order) {
		o.PaymentStatus = models.PaymentStatusPaid
		o.Status = models.OrderStatusShipping
	})
	view, err := env.admin.CancelOrder(t.Context(), order.ID, "", testAdmin)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, view.Order.Status)
	assert.Equal(t, models.PaymentStatusPaid, view.Order.PaymentStatus)
	require.Len(t, view.Order.StatusHistory, 1)
	assert.Empty(t, view.Order.StatusHistory[0].Note)
}

func TestUpdatePaymentStatusManually(t *testing.T) {
	tests := []struct {
		name    string
		from    models.PaymentStatus
		to      string
		cancel  bool
		wantErr func(t *testing.T, err error)
	}{
		{name: "pending to paid", from: models.PaymentStatusPending, to: "paid"},
		{name: "pending to failed", from: models.PaymentStatusPending, to: "failed"},
		{name: "failed back to pending", from: models.PaymentStatusFailed, to: "pending"},
		{name: "paid to refunded", from: models.PaymentStatusPaid, to: "refunded"},
		{
			name: "paid back to pending",
			from: models.PaymentStatusPaid,
			to:   "pending",
			wantErr: func(t *testing.T, err error) {
				var terr *TransitionError
				require.True(t, errors.As(err, &terr), "got %v", err)
				assert.Equal(t, "paymentStatus", terr.Field)
			},
		},
		{
			name: "unknown status",
			from: models.PaymentStatusPending,
			to:   "settled",
			wantErr: func(t *testing.T, err error) {
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "got %v", err)
			},
		},
		{
			name:   "paid on a cancelled order",
			from:   models.PaymentStatusPending,
			to:     "paid",
			cancel: true,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrOrderCancelled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			order := env.seedOrder(t, models.PaymentMethodBankTransfer, func(o *models.Order) {
				o.PaymentStatus = tt.from
				if tt.cancel {
					o.Status = models.OrderStatusCancelled
				}
			})

			view, err := env.admin.UpdatePaymentStatus(t.Context(), order.ID, PaymentStatusUpdate{PaymentStatus: tt.to}, testAdmin)
			if tt.wantErr != nil {
				tt.wantErr(t, err)
				assert.Equal(t, tt.from, env.reload(t, order.ID).PaymentStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatus(tt.to), view.Order.PaymentStatus)
			assert.Empty(t, view.Order.StatusHistory, "payment changes do not touch status history")
			assert.Equal(t, []string{events.TypePaymentStatusChanged}, env.publisher.types())
		})
	}
}

func TestUpdatePaymentStatusWithProof(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	order := env.seedOrder(t, models.PaymentMethodZaloPay, nil)
	other := env.seedOrder(t, models.PaymentMethodZaloPay, nil)
	proof, err := env.customer.SubmitProof(ctx, order.OrderNumber, validProofInput(), testCustomer)
	require.NoError(t, err)

	_, err = env.admin.UpdatePaymentStatus(ctx, order.ID, PaymentStatusUpdate{
		PaymentStatus: "paid",
		ProofID:       proof.ID,
		ProofDecision: "rejected",
	}, testAdmin)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "proofStatus", verr.Field)

	_, err = env.admin.UpdatePaymentStatus(ctx, order.ID, PaymentStatusUpdate{
		PaymentStatus: "refunded",
		ProofID:       proof.ID,
	}, testAdmin)
	require.True(t, errors.As(err, &verr), "got %v", err)

	_, err = env.admin.UpdatePaymentStatus(ctx, other.ID, PaymentStatusUpdate{
		PaymentStatus: "paid",
		ProofID:       proof.ID,
	}, testAdmin)
	assert.ErrorIs(t, err, ErrProofNotFound)

	view, err := env.admin.UpdatePaymentStatus(ctx, order.ID, PaymentStatusUpdate{
		PaymentStatus: "failed",
		ProofID:       proof.ID,
		ProofDecision: "reject",
	}, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, view.Order.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, view.Order.Status)

	_, err = env.admin.UpdatePaymentStatus(ctx, order.ID, PaymentStatusUpdate{
		PaymentStatus: "paid",
		ProofID:       proof.ID,
	}, testAdmin)
	assert.ErrorIs(t, err, ErrProofAlreadyReviewed)
}

func TestAdminUseCasesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(t, models.PaymentMethodCOD, nil)

	for _, who := range []auth.Principal{{}, testCustomer} {
		_, err := env.admin.UpdateStatus(t.Context(), order.ID, models.OrderStatusShipping, "", who)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = env.admin.CancelOrder(t.Context(), order.ID, "", who)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = env.admin.CreateOrder(t.Context(), newOrderInput(models.PaymentMethodCOD), who)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, models.OrderStatusProcessing, env.reload(t, order.ID).Status)
}

func TestUseCaseOnMissingOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.admin.GetOrder(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.admin.UpdateStatus(t.Context(), "missing", models.OrderStatusShipping, "", testAdmin)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.admin.GeneratePaymentQR(t.Context(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, KindNotFound, Classify(err))
}

// racingRepo lets a rival write land between the locked read and the write.
type racingRepo struct {
	port.OrderRepository
}

func (r *racingRepo) WithinTx(ctx context.Context, fn func(tx port.OrderRepository) error) error {
	return r.OrderRepository.WithinTx(ctx, func(tx port.OrderRepository) error {
		return fn(&racingRepo{OrderRepository: tx})
	})
}

func (r *racingRepo) SaveOrder(ctx context.Context, order *models.Order, entry *models.OrderStatusHistory) error {
	rival := *order
	rival.Status = models.OrderStatusCancelled
	if err := r.OrderRepository.SaveOrder(ctx, &rival, nil); err != nil {
		return err
	}
	return r.OrderRepository.SaveOrder(ctx, order, entry)
}

func TestConcurrentChangeFailsWithTransitionError(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(t, models.PaymentMethodCOD, nil)

	svc := NewAdminOrderService(AdminOrderServiceConfig{
		Repo:      &racingRepo{OrderRepository: env.repo},
		Publisher: env.publisher,
		Now:       env.clock.Now,
	})
	_, err := svc.UpdateStatus(t.Context(), order.ID, models.OrderStatusShipping, "", testAdmin)

	var terr *TransitionError
	require.True(t, errors.As(err, &terr), "got %v", err)
	assert.Equal(t, "Processing", terr.From)
	assert.Equal(t, "Shipping", terr.To)

	reloaded := env.reload(t, order.ID)
	assert.Equal(t, models.OrderStatusProcessing, reloaded.Status)
	assert.Equal(t, 1, reloaded.Version)
	assert.Empty(t, reloaded.StatusHistory)
	assert.Empty(t, env.publisher.types())
}

func TestPublishFailureDoesNotFailUseCase(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")
	order := env.seedOrder(t, models.PaymentMethodCOD, nil)

	view, err := env.admin.UpdateStatus(t.Context(), order.ID, models.OrderStatusShipping, "", testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipping, view.Order.Status)
}

func TestListOrdersRanksProcessingFirst(t *testing.T) {
	env := newTestEnv(t)

	shipped := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.Status = models.OrderStatusShipping
		o.OrderedAt = testNow.Add(-time.Minute)
	})
	relaxed := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.OrderedAt = testNow.Add(-2 * time.Hour)
	})
	urgent := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.OrderedAt = testNow.Add(-18 * time.Hour)
	})
	expired := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.OrderedAt = testNow.Add(-30 * time.Hour)
	})

	views, total, err := env.admin.ListOrders(t.Context(), models.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.Order.ID)
	}
	assert.Equal(t, []string{urgent.ID, expired.ID, relaxed.ID, shipped.ID}, ids)
	assert.True(t, views[0].Urgency.IsUrgent)
	assert.True(t, views[1].Urgency.IsExpired)

	_, _, err = env.admin.ListOrders(t.Context(), models.OrderFilter{Limit: 500})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr), "got %v", err)
}

func TestListOrdersRanksBeforePaging(t *testing.T) {
	env := newTestEnv(t)

	fresh := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.OrderedAt = testNow.Add(-time.Hour)
	})
	urgent := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.OrderedAt = testNow.Add(-20 * time.Hour)
	})
	shipped := env.seedOrder(t, models.PaymentMethodCOD, func(o *models.Order) {
		o.Status = models.OrderStatusShipping
		o.OrderedAt = testNow.Add(-time.Minute)
	})

	var ids []string
	for offset := 0; offset < 3; offset++ {
		views, total, err := env.admin.ListOrders(t.Context(), models.OrderFilter{Limit: 1, Offset: offset})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, views, 1)
		ids = append(ids, views[0].Order.ID)
	}
	assert.Equal(t, []string{urgent.ID, fresh.ID, shipped.ID}, ids)
}

func TestCreateOrderDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)

	in := newOrderInput(models.PaymentMethodMomo)
	in.OrderNumber = "ORD-2024"
	_, err := env.admin.CreateOrder(t.Context(), in, testAdmin)
	require.NoError(t, err)

	_, err = env.admin.CreateOrder(t.Context(), in, testAdmin)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "orderNumber", verr.Field)
}

// collidingRepo reports the first collisions inserts as duplicate order numbers.
type collidingRepo struct {
	port.OrderRepository
	collisions int
	numbers    []string
}

func (r *collidingRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	r.numbers = append(r.numbers, order.OrderNumber)
	if len(r.numbers) <= r.collisions {
		return fmt.Errorf("create order %s: %w", order.OrderNumber, port.ErrDuplicate)
	}
	return r.OrderRepository.CreateOrder(ctx, order)
}

func TestCreateOrderRetriesGeneratedNumber(t *testing.T) {
	env := newTestEnv(t)
	repo := &collidingRepo{OrderRepository: env.repo, collisions: 2}
	svc := NewAdminOrderService(AdminOrderServiceConfig{Repo: repo, Publisher: env.publisher, Now: env.clock.Now})

	view, err := svc.CreateOrder(t.Context(), newOrderInput(models.PaymentMethodCOD), testAdmin)
	require.NoError(t, err)
	require.Len(t, repo.numbers, 3)
	assert.Equal(t, repo.numbers[2], view.Order.OrderNumber)
	assert.NotEqual(t, repo.numbers[0], repo.numbers[2])

	repo = &collidingRepo{OrderRepository: env.repo, collisions: orderNumberAttempts}
	svc = NewAdminOrderService(AdminOrderServiceConfig{Repo: repo, Publisher: env.publisher, Now: env.clock.Now})
	_, err = svc.CreateOrder(t.Context(), newOrderInput(models.PaymentMethodCOD), testAdmin)
	require.Error(t, err)
	assert.Equal(t, KindInternal, Classify(err))
	assert.Len(t, repo.numbers, orderNumberAttempts)
}

func TestAdminSubmitAndListProofs(t *testing.T) {
	env := newTestEnv(t)
	order := env.seedOrder(t, models.PaymentMethodBankTransfer, nil)

	proof, err := env.admin.SubmitProof(t.Context(), order.ID, validProofInput(), testAdmin)
	require.NoError(t, err)
	assert.Equal(t, testAdmin.UserID, proof.UserID)

	proofs, err := env.admin.ListProofs(t.Context(), order.ID)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Equal(t, proof.ID, proofs[0].ID)

	view, err := env.admin.ReviewProof(t.Context(), proof.ID, ProofDecisionAccept, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, view.Order.PaymentStatus)
}
