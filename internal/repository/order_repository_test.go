package repository_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"blockify-backend/internal/database"
	"blockify-backend/internal/models"
	"blockify-backend/internal/port"
	"blockify-backend/internal/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestCreateAndFindOrder(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	order := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &order))

	byID, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	byNumber, err := repo.FindOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)

	for _, found := range []models.Order{byID, byNumber} {
		assert.Equal(t, order.ID, found.ID)
		assert.Equal(t, order.Customer.Data(), found.Customer.Data())
		assert.True(t, order.TotalAmount.Equal(found.TotalAmount))
		assert.True(t, found.TotalMatches())
		assert.Equal(t, 1, found.Version)
		assert.Empty(t, found.StatusHistory)
		assert.Empty(t, cmp.Diff(order.Items, found.Items, decimalComparer))
	}
}

func TestCreateOrderDuplicateNumber(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	first := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &first))

	second := fakeOrder()
	second.OrderNumber = first.OrderNumber
	assert.ErrorIs(t, repo.CreateOrder(ctx, &second), port.ErrDuplicate)
}

func TestFindOrderNotFound(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))

	_, err := repo.FindOrderByID(t.Context(), "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)

	_, err = repo.FindProofByID(t.Context(), "missing")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestSaveOrderVersionCheck(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	order := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &order))

	stale := order

	order.Status = models.OrderStatusCancelled
	entry := &models.OrderStatusHistory{
		OldStatus:    models.OrderStatusProcessing,
		NewStatus:    models.OrderStatusCancelled,
		Note:         "customer request",
		ActorAdminID: 1,
		At:           time.Now(),
	}
	require.NoError(t, repo.SaveOrder(ctx, &order, entry))
	assert.Equal(t, 2, order.Version)
	assert.Equal(t, order.ID, entry.OrderID)

	stale.Status = models.OrderStatusShipping
	err := repo.SaveOrder(ctx, &stale, &models.OrderStatusHistory{
		OldStatus:    models.OrderStatusProcessing,
		NewStatus:    models.OrderStatusShipping,
		ActorAdminID: 1,
		At:           time.Now(),
	})
	assert.ErrorIs(t, err, port.ErrStaleOrder)

	found, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, found.Status)
	require.Len(t, found.StatusHistory, 1)
	assert.Equal(t, "customer request", found.StatusHistory[0].Note)
}

func TestWithinTxRollsBack(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	order := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &order))

	boom := fmt.Errorf("boom")
	err := repo.WithinTx(ctx, func(tx port.OrderRepository) error {
		locked, err := tx.FindOrderByID(ctx, order.ID)
		if err != nil {
			return err
		}
		locked.PaymentStatus = models.PaymentStatusPaid
		if err := tx.SaveOrder(ctx, &locked, nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, found.PaymentStatus)
	assert.Equal(t, 1, found.Version)
}

func TestStatusHistoryIsAppendOnly(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewOrderRepository(db)
	ctx := t.Context()

	order := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &order))
	order.Status = models.OrderStatusCancelled
	entry := &models.OrderStatusHistory{
		OldStatus:    models.OrderStatusProcessing,
		NewStatus:    models.OrderStatusCancelled,
		ActorAdminID: 1,
		At:           time.Now(),
	}
	require.NoError(t, repo.SaveOrder(ctx, &order, entry))

	err := db.Model(entry).Update("note", "rewritten").Error
	assert.ErrorIs(t, err, models.ErrHistoryImmutable)

	err = db.Delete(entry).Error
	assert.ErrorIs(t, err, models.ErrHistoryImmutable)

	var count int64
	require.NoError(t, db.Model(&models.OrderStatusHistory{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListOrders(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	base := time.Now().UTC().Add(-time.Hour)
	var orders []models.Order
	for i := 0; i < 5; i++ {
		o := fakeOrder()
		o.OrderedAt = base.Add(time.Duration(i) * time.Minute)
		if i%2 == 1 {
			o.PaymentStatus = models.PaymentStatusPaid
		}
		if i == 4 {
			o.Status = models.OrderStatusShipping
			o.Customer = datatypes.NewJSONType(models.CustomerSnapshot{
				Name:    "Tran Thi Mai",
				Email:   "mai.tran@example.vn",
				Phone:   "0901234567",
				Address: "12 Le Loi, Quan 1",
			})
		}
		require.NoError(t, repo.CreateOrder(ctx, &o))
		orders = append(orders, o)
	}

	paid := models.PaymentStatusPaid
	processing := models.OrderStatusProcessing

	tests := []struct {
		name      string
		filter    models.OrderFilter
		wantTotal int64
		wantIDs   []string
	}{
		{
			name:      "newest first with paging",
			filter:    models.OrderFilter{Limit: 2},
			wantTotal: 5,
			wantIDs:   []string{orders[4].ID, orders[3].ID},
		},
		{
			name:      "second page",
			filter:    models.OrderFilter{Limit: 2, Offset: 2},
			wantTotal: 5,
			wantIDs:   []string{orders[2].ID, orders[1].ID},
		},
		{
			name:      "status and payment status combine",
			filter:    models.OrderFilter{Status: &processing, PaymentStatus: &paid, Limit: 10},
			wantTotal: 2,
			wantIDs:   []string{orders[3].ID, orders[1].ID},
		},
		{
			name:      "search by customer email ignores case",
			filter:    models.OrderFilter{Search: "MAI.TRAN@", Limit: 10},
			wantTotal: 1,
			wantIDs:   []string{orders[4].ID},
		},
		{
			name:      "search by order number",
			filter:    models.OrderFilter{Search: orders[0].OrderNumber, Limit: 10},
			wantTotal: 1,
			wantIDs:   []string{orders[0].ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.ListOrders(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)

			ids := make([]string, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestListOrdersRankedByUrgency(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()
	now := time.Now().UTC().Truncate(time.Second)

	seed := func(status models.OrderStatus, age time.Duration) models.Order {
		o := fakeOrder()
		o.Status = status
		o.OrderedAt = now.Add(-age)
		require.NoError(t, repo.CreateOrder(ctx, &o))
		return o
	}
	delivered := seed(models.OrderStatusDelivered, time.Minute)
	fresh := seed(models.OrderStatusProcessing, time.Hour)
	expired := seed(models.OrderStatusProcessing, 30*time.Hour)
	urgent := seed(models.OrderStatusProcessing, 20*time.Hour)
	shipped := seed(models.OrderStatusShipping, 2*time.Hour)

	want := []string{urgent.ID, expired.ID, fresh.ID, delivered.ID, shipped.ID}
	for offset := range want {
		got, total, err := repo.ListOrders(ctx, models.OrderFilter{Limit: 1, Offset: offset, RankAt: now})
		require.NoError(t, err)
		assert.Equal(t, int64(len(want)), total)
		require.Len(t, got, 1)
		assert.Equal(t, want[offset], got[0].ID, "offset %d", offset)
	}
}

func TestListOrdersSearchEscapesWildcards(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	plain := fakeOrder()
	plain.OrderNumber = "ORD-PLAIN-1"
	require.NoError(t, repo.CreateOrder(ctx, &plain))
	underscored := fakeOrder()
	underscored.OrderNumber = "ORD_UNDER-1"
	require.NoError(t, repo.CreateOrder(ctx, &underscored))

	_, total, err := repo.ListOrders(ctx, models.OrderFilter{Search: "%", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	got, total, err := repo.ListOrders(ctx, models.OrderFilter{Search: "ord_", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, underscored.ID, got[0].ID)
}

func TestPaymentProofs(t *testing.T) {
	repo := repository.NewOrderRepository(setupTestDB(t))
	ctx := t.Context()

	order := fakeOrder()
	require.NoError(t, repo.CreateOrder(ctx, &order))

	older := fakeProof(order, time.Now().UTC().Add(-time.Hour))
	newer := fakeProof(order, time.Now().UTC())
	require.NoError(t, repo.CreateProof(ctx, &older))
	require.NoError(t, repo.CreateProof(ctx, &newer))

	proofs, err := repo.ListProofs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, proofs, 2)
	assert.Equal(t, newer.ID, proofs[0].ID)
	assert.Equal(t, older.ID, proofs[1].ID)

	admin := uint(7)
	reviewedAt := time.Now()
	newer.Status = models.ProofStatusAccepted
	newer.ReviewedBy = &admin
	newer.ReviewedAt = &reviewedAt
	require.NoError(t, repo.SaveProof(ctx, &newer))

	found, err := repo.FindProofByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProofStatusAccepted, found.Status)
	require.NotNil(t, found.ReviewedBy)
	assert.Equal(t, admin, *found.ReviewedBy)

	newer.Status = models.ProofStatusRejected
	assert.ErrorIs(t, repo.SaveProof(ctx, &newer), port.ErrStaleProof)
}

var decimalComparer = cmp.Comparer(func(x, y decimal.Decimal) bool {
	return x.Equal(y)
})

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func fakeOrder() models.Order {
	id := newID()
	qty := gofakeit.Number(1, 5)
	price := decimal.NewFromInt(int64(gofakeit.Number(10, 500)) * 1000)
	line := price.Mul(decimal.NewFromInt(int64(qty)))
	shipping := decimal.NewFromInt(30000)

	return models.Order{
		ID:          id,
		OrderNumber: "ORD-" + strings.ToUpper(id[:10]),
		UserID:      uint(gofakeit.Number(1, 1000)),
		Customer: datatypes.NewJSONType(models.CustomerSnapshot{
			Name:    gofakeit.Name(),
			Email:   gofakeit.Email(),
			Phone:   gofakeit.Phone(),
			Address: gofakeit.Street(),
		}),
		Items: []models.OrderItem{{
			ProductID:   gofakeit.UUID(),
			ProductName: gofakeit.ProductName(),
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   line,
		}},
		Subtotal:      line,
		ShippingFee:   shipping,
		Discount:      decimal.Zero,
		TotalAmount:   line.Add(shipping),
		Status:        models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodBankTransfer,
		Version:       1,
		OrderedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
}

func fakeProof(order models.Order, at time.Time) models.PaymentProof {
	return models.PaymentProof{
		ID:        newID(),
		OrderID:   order.ID,
		UserID:    order.UserID,
		FileURL:   gofakeit.URL(),
		FileType:  "image/png",
		Status:    models.ProofStatusPending,
		CreatedAt: at,
	}
}
