package services

import (
	"blockify-backend/internal/models"
	"blockify-backend/internal/payment"

	"github.com/shopspring/decimal"
)

// PaymentQRService renders transfer QR codes for the shop's receiving account.
type PaymentQRService struct {
	generator payment.Generator
	account   payment.BankAccount
}

func NewPaymentQRService(generator payment.Generator, account payment.BankAccount) *PaymentQRService {
	return &PaymentQRService{generator: generator, account: account}
}

// Generate builds a QR for an arbitrary amount and reference.
func (s *PaymentQRService) Generate(amount decimal.Decimal, reference string) (payment.QR, error) {
	qr, err := s.generator.Generate(s.account, amount, reference)
	if err != nil {
		return payment.QR{}, toValidationError(err)
	}
	return qr, nil
}

// ForOrder builds the QR a customer pays the order against, referenced by its order number.
func (s *PaymentQRService) ForOrder(order *models.Order) (payment.QR, error) {
	if err := checkPayable(order); err != nil {
		return payment.QR{}, err
	}
	return s.Generate(order.TotalAmount, order.OrderNumber)
}

// checkPayable rejects orders that cannot receive a transfer.
func checkPayable(order *models.Order) error {
	if !order.PaymentMethod.SupportsQR() {
		return ErrUnsupportedPaymentMethod
	}
	if order.PaymentStatus == models.PaymentStatusPaid || order.PaymentStatus == models.PaymentStatusRefunded {
		return ErrAlreadyPaid
	}
	if order.Status == models.OrderStatusCancelled {
		return ErrOrderCancelled
	}
	return nil
}
