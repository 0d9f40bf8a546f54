package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"blockify-backend/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

var orderNumberPattern = regexp.MustCompile(`^[A-Za-z0-9-]{3,25}$`)

type NewOrderCustomer struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"required,max=20"`
	Address string `json:"address" validate:"required,max=500"`
}

type NewOrderItem struct {
	ProductID   string          `json:"productId" validate:"required,max=64"`
	ProductName string          `json:"productName" validate:"max=255"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// NewOrderInput is the checkout payload. Amounts are whole VND.
type NewOrderInput struct {
	OrderNumber   string           `json:"orderNumber"`
	UserID        uint             `json:"userId"`
	Customer      NewOrderCustomer `json:"customer"`
	Items         []NewOrderItem   `json:"items" validate:"required,min=1,dive"`
	ShippingFee   decimal.Decimal  `json:"shippingFee"`
	Discount      decimal.Decimal  `json:"discount"`
	PaymentMethod string           `json:"paymentMethod" validate:"required"`
	OrderedAt     time.Time        `json:"orderedAt"`
}

// BuildOrder validates the input and returns a Processing order with pending payment.
// Line totals, subtotal and total are computed here, never taken from the caller.
func BuildOrder(in NewOrderInput, now time.Time) (models.Order, error) {
	if err := validate.Struct(in); err != nil {
		return models.Order{}, toValidationError(err)
	}
	method, err := models.ToPaymentMethod(in.PaymentMethod)
	if err != nil {
		return models.Order{}, newValidationError("paymentMethod", err.Error())
	}

	number := strings.TrimSpace(in.OrderNumber)
	if number == "" {
		number = newOrderNumber(now)
	}
	if !orderNumberPattern.MatchString(number) {
		return models.Order{}, newValidationError("orderNumber", "must be 3-25 letters, digits or dashes")
	}

	for i, item := range in.Items {
		if err := checkAmount(fmt.Sprintf("items[%d].unitPrice", i), item.UnitPrice); err != nil {
			return models.Order{}, err
		}
	}
	if err := checkAmount("shippingFee", in.ShippingFee); err != nil {
		return models.Order{}, err
	}
	if err := checkAmount("discount", in.Discount); err != nil {
		return models.Order{}, err
	}

	items := lo.Map(in.Items, func(item NewOrderItem, _ int) models.OrderItem {
		return models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
	})
	subtotal := decimal.Sum(decimal.Zero, lo.Map(items, func(item models.OrderItem, _ int) decimal.Decimal {
		return item.LineTotal
	})...)
	if in.Discount.GreaterThan(subtotal) {
		return models.Order{}, newValidationError("discount", "must not exceed the subtotal")
	}

	orderedAt := in.OrderedAt
	if orderedAt.IsZero() {
		orderedAt = now
	}

	order := models.Order{
		ID:          newRecordID(),
		OrderNumber: number,
		UserID:      in.UserID,
		Customer: datatypes.NewJSONType(models.CustomerSnapshot{
			Name:    strings.TrimSpace(in.Customer.Name),
			Email:   strings.TrimSpace(in.Customer.Email),
			Phone:   strings.TrimSpace(in.Customer.Phone),
			Address: strings.TrimSpace(in.Customer.Address),
		}),
		Items:         items,
		Subtotal:      subtotal,
		ShippingFee:   in.ShippingFee,
		Discount:      in.Discount,
		TotalAmount:   subtotal.Sub(in.Discount).Add(in.ShippingFee),
		Status:        models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: method,
		Version:       1,
		OrderedAt:     orderedAt,
	}
	if !order.TotalMatches() {
		return models.Order{}, fmt.Errorf("order %s: total does not match its parts", number)
	}
	return order, nil
}

func checkAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return newValidationError(field, "must not be negative")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return newValidationError(field, "must be a whole number of VND")
	}
	return nil
}

// orderNumberAttempts bounds retries when a generated order number is already taken.
const orderNumberAttempts = 5

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("060102"), strings.ToUpper(newRecordID()[:6]))
}
