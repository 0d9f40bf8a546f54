package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrHistoryImmutable = errors.New("order status history is append-only")

// CustomerSnapshot is copied onto the order at checkout and never refreshed from the profile.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Order struct {
	ID            string                               `gorm:"primarykey;type:varchar(32)"`
	OrderNumber   string                               `gorm:"uniqueIndex;type:varchar(32);not null"`
	UserID        uint                                 `gorm:"index"`
	Customer      datatypes.JSONType[CustomerSnapshot] `gorm:"not null"`
	Items         []OrderItem                          `gorm:"foreignKey:OrderID"`
	Subtotal      decimal.Decimal                      `gorm:"type:decimal(20,2);not null"`
	ShippingFee   decimal.Decimal                      `gorm:"type:decimal(20,2);not null"`
	Discount      decimal.Decimal                      `gorm:"type:decimal(20,2);not null"`
	TotalAmount   decimal.Decimal                      `gorm:"type:decimal(20,2);not null"`
	Status        OrderStatus                          `gorm:"type:varchar(20);index;not null"`
	PaymentStatus PaymentStatus                        `gorm:"type:varchar(20);index;not null"`
	PaymentMethod PaymentMethod                        `gorm:"type:varchar(20);not null"`
	Version       int                                  `gorm:"not null;default:1"` // bumped on every save
	OrderedAt     time.Time                            `gorm:"index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Loaded on read only; new entries go through the repository append.
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID"`
}

// TotalMatches checks totalAmount == subtotal - discount + shippingFee.
func (o *Order) TotalMatches() bool {
	return o.TotalAmount.Equal(o.Subtotal.Sub(o.Discount).Add(o.ShippingFee))
}

type OrderItem struct {
	ID          uint            `gorm:"primarykey"`
	OrderID     string          `gorm:"index;type:varchar(32);not null"`
	ProductID   string          `gorm:"type:varchar(64);not null"`
	ProductName string          `gorm:"type:varchar(255)"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,2);not null"`
}

type OrderStatusHistory struct {
	ID           uint        `gorm:"primarykey"`
	OrderID      string      `gorm:"index;type:varchar(32);not null"`
	OldStatus    OrderStatus `gorm:"type:varchar(20);not null"`
	NewStatus    OrderStatus `gorm:"type:varchar(20);not null"`
	Note         string      `gorm:"type:text"`
	ActorAdminID uint        `gorm:"index;not null"`
	At           time.Time   `gorm:"precision:3;not null"`
}

// BeforeUpdate rejects any update so rows stay insert-only.
func (h *OrderStatusHistory) BeforeUpdate(tx *gorm.DB) error {
	return ErrHistoryImmutable
}

func (h *OrderStatusHistory) BeforeDelete(tx *gorm.DB) error {
	return ErrHistoryImmutable
}
