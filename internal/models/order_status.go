package models

import "fmt"

type OrderStatus string

// remember to add new statuses to validOrderStatuses
const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipping   OrderStatus = "Shipping"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusReturned   OrderStatus = "Returned"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusProcessing: {},
	OrderStatusShipping:   {},
	OrderStatusDelivered:  {},
	OrderStatusReturned:   {},
	OrderStatusCancelled:  {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// IsTerminal reports whether no transition is defined out of the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusReturned || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusPending:  {},
	PaymentStatusPaid:     {},
	PaymentStatusFailed:   {},
	PaymentStatusRefunded: {},
}

func ToPaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := validPaymentStatuses[status]; ok {
		return status, nil
	}
	return "", fmt.Errorf("invalid payment status %q", s)
}

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodMomo         PaymentMethod = "momo"
	PaymentMethodZaloPay      PaymentMethod = "zalopay"
	PaymentMethodVNPay        PaymentMethod = "vnpay"
)

var validPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCOD:          {},
	PaymentMethodBankTransfer: {},
	PaymentMethodMomo:         {},
	PaymentMethodZaloPay:      {},
	PaymentMethodVNPay:        {},
}

func ToPaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if _, ok := validPaymentMethods[method]; ok {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment method %q", s)
}

// SupportsQR reports whether the customer pays the order against a generated transfer QR.
func (m PaymentMethod) SupportsQR() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodMomo, PaymentMethodZaloPay, PaymentMethodVNPay:
		return true
	}
	return false
}

type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusAccepted ProofStatus = "accepted"
	ProofStatusRejected ProofStatus = "rejected"
)
