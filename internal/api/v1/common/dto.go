package common

import (
	"time"

	"blockify-backend/internal/models"
	"blockify-backend/internal/services"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type OrderItemResponse struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type StatusHistoryResponse struct {
	OldStatus    models.OrderStatus `json:"oldStatus"`
	NewStatus    models.OrderStatus `json:"newStatus"`
	Note         string             `json:"note,omitempty"`
	ActorAdminID uint               `json:"actorAdminId"`
	At           time.Time          `json:"at"`
}

type OrderResponse struct {
	ID            string                  `json:"id"`
	OrderNumber   string                  `json:"orderNumber"`
	UserID        uint                    `json:"userId,omitempty"`
	Customer      models.CustomerSnapshot `json:"customer"`
	Items         []OrderItemResponse     `json:"items"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	ShippingFee   decimal.Decimal         `json:"shippingFee"`
	Discount      decimal.Decimal         `json:"discount"`
	TotalAmount   decimal.Decimal         `json:"totalAmount"`
	Status        models.OrderStatus      `json:"status"`
	PaymentStatus models.PaymentStatus    `json:"paymentStatus"`
	PaymentMethod models.PaymentMethod    `json:"paymentMethod"`
	Version       int                     `json:"version"`
	OrderedAt     time.Time               `json:"orderedAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
	Urgency       *services.Urgency       `json:"urgency,omitempty"`
	StatusHistory []StatusHistoryResponse `json:"statusHistory,omitempty"`
}

type PaymentProofResponse struct {
	ID         string             `json:"id"`
	OrderID    string             `json:"orderId"`
	UserID     uint               `json:"userId"`
	FileURL    string             `json:"fileUrl"`
	FileType   string             `json:"fileType,omitempty"`
	Note       string             `json:"note,omitempty"`
	Status     models.ProofStatus `json:"status"`
	ReviewedBy *uint              `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time         `json:"reviewedAt,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

func NewOrderResponse(view services.OrderView) OrderResponse {
	o := view.Order
	return OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Customer:    o.Customer.Data(),
		Items: lo.Map(o.Items, func(item models.OrderItem, _ int) OrderItemResponse {
			return OrderItemResponse{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				LineTotal:   item.LineTotal,
			}
		}),
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		Version:       o.Version,
		OrderedAt:     o.OrderedAt,
		UpdatedAt:     o.UpdatedAt,
		Urgency:       view.Urgency,
		StatusHistory: lo.Map(o.StatusHistory, func(h models.OrderStatusHistory, _ int) StatusHistoryResponse {
			return StatusHistoryResponse{
				OldStatus:    h.OldStatus,
				NewStatus:    h.NewStatus,
				Note:         h.Note,
				ActorAdminID: h.ActorAdminID,
				At:           h.At,
			}
		}),
	}
}

func NewPaymentProofResponse(p models.PaymentProof) PaymentProofResponse {
	return PaymentProofResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		UserID:     p.UserID,
		FileURL:    p.FileURL,
		FileType:   p.FileType,
		Note:       p.Note,
		Status:     p.Status,
		ReviewedBy: p.ReviewedBy,
		ReviewedAt: p.ReviewedAt,
		CreatedAt:  p.CreatedAt,
	}
}
