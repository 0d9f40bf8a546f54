package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blockify-backend/internal/models"
	"blockify-backend/internal/port"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// "at" is quoted because it is a keyword in some dialects.
var historyOrder = clause.OrderBy{Columns: []clause.OrderByColumn{
	{Column: clause.Column{Name: "at"}},
	{Column: clause.Column{Name: "id"}},
}}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Processing orders inside the urgency window rank first, then the remaining Processing
// orders, then everything else newest first. Processing orders go by deadline, which is
// ordered_at ASC. One expression, since gorm drops an Expression when columns are merged in.
const urgencyOrderSQL = `CASE
	WHEN status = ? AND ordered_at > ? AND ordered_at <= ? THEN 0
	WHEN status = ? THEN 1
	ELSE 2 END,
	CASE WHEN status = ? THEN ordered_at END ASC,
	ordered_at DESC,
	id`

func urgencyOrder(now time.Time) clause.OrderBy {
	processing := models.OrderStatusProcessing
	return clause.OrderBy{Expression: clause.Expr{
		SQL: urgencyOrderSQL,
		Vars: []interface{}{
			processing, now.Add(-models.ConfirmationWindow), now.Add(-models.UrgencyThreshold),
			processing,
			processing,
		},
		WithoutParentheses: true,
	}}
}

type orderRepository struct {
	db   *gorm.DB
	inTx bool
}

var _ port.OrderRepository = (*orderRepository)(nil)

func NewOrderRepository(db *gorm.DB) port.OrderRepository {
	return &orderRepository{db: db}
}

// WithinTx joins the surrounding transaction when the repository is already bound to one.
func (r *orderRepository) WithinTx(ctx context.Context, fn func(tx port.OrderRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&orderRepository{db: tx, inTx: true})
	})
}

func (r *orderRepository) query(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// locking adds SELECT ... FOR UPDATE inside a transaction. SQLite drops the clause.
func (r *orderRepository) locking(ctx context.Context) *gorm.DB {
	q := r.query(ctx)
	if r.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *orderRepository) FindOrderByID(ctx context.Context, orderID string) (models.Order, error) {
	return r.findOrder(ctx, "id = ?", orderID)
}

func (r *orderRepository) FindOrderByNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	return r.findOrder(ctx, "order_number = ?", orderNumber)
}

func (r *orderRepository) findOrder(ctx context.Context, cond string, arg any) (models.Order, error) {
	var order models.Order
	if err := r.locking(ctx).Where(cond, arg).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, fmt.Errorf("find order: %w", port.ErrNotFound)
		}
		return models.Order{}, fmt.Errorf("find order: %w", err)
	}

	if err := r.query(ctx).Where("order_id = ?", order.ID).Order("id").Find(&order.Items).Error; err != nil {
		return models.Order{}, fmt.Errorf("load order items: %w", err)
	}
	if err := r.query(ctx).Where("order_id = ?", order.ID).Order(historyOrder).Find(&order.StatusHistory).Error; err != nil {
		return models.Order{}, fmt.Errorf("load status history: %w", err)
	}
	return order, nil
}

func (r *orderRepository) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	q := r.query(ctx).Model(&models.Order{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		q = q.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		// customer holds the JSON snapshot, so one LIKE covers name, email and phone
		q = q.Where(`(LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(CAST(customer AS TEXT)) LIKE ? ESCAPE '\')`, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	if filter.RankAt.IsZero() {
		q = q.Order("ordered_at DESC").Order("id")
	} else {
		q = q.Order(urgencyOrder(filter.RankAt))
	}
	var orders []models.Order
	err := q.Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.query(ctx).Omit("StatusHistory").Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create order %s: %w", order.OrderNumber, port.ErrDuplicate)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *orderRepository) SaveOrder(ctx context.Context, order *models.Order, entry *models.OrderStatusHistory) error {
	return r.WithinTx(ctx, func(tx port.OrderRepository) error {
		db := tx.(*orderRepository).query(ctx)

		res := db.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]interface{}{
				"status":         order.Status,
				"payment_status": order.PaymentStatus,
				"version":        order.Version + 1,
				"updated_at":     time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("save order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("save order %s: %w", order.ID, port.ErrStaleOrder)
		}
		order.Version++

		if entry == nil {
			return nil
		}
		entry.OrderID = order.ID
		if err := db.Create(entry).Error; err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		order.StatusHistory = append(order.StatusHistory, *entry)
		return nil
	})
}

func (r *orderRepository) FindProofByID(ctx context.Context, proofID string) (models.PaymentProof, error) {
	var proof models.PaymentProof
	if err := r.locking(ctx).Where("id = ?", proofID).First(&proof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PaymentProof{}, fmt.Errorf("find payment proof: %w", port.ErrNotFound)
		}
		return models.PaymentProof{}, fmt.Errorf("find payment proof: %w", err)
	}
	return proof, nil
}

func (r *orderRepository) ListProofs(ctx context.Context, orderID string) ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := r.query(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").Order("id DESC").
		Find(&proofs).Error
	if err != nil {
		return nil, fmt.Errorf("list payment proofs: %w", err)
	}
	return proofs, nil
}

func (r *orderRepository) CreateProof(ctx context.Context, proof *models.PaymentProof) error {
	if err := r.query(ctx).Create(proof).Error; err != nil {
		return fmt.Errorf("create payment proof: %w", err)
	}
	return nil
}

func (r *orderRepository) SaveProof(ctx context.Context, proof *models.PaymentProof) error {
	res := r.query(ctx).Model(&models.PaymentProof{}).
		Where("id = ? AND status = ?", proof.ID, models.ProofStatusPending).
		Updates(map[string]interface{}{
			"status":      proof.Status,
			"reviewed_by": proof.ReviewedBy,
			"reviewed_at": proof.ReviewedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("save payment proof: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save payment proof %s: %w", proof.ID, port.ErrStaleProof)
	}
	return nil
}
