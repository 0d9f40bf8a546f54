package services

import (
	"errors"
	"fmt"

	"blockify-backend/internal/payment"

	"github.com/go-playground/validator/v10"
)

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrProofNotFound            = errors.New("payment proof not found")
	ErrOrderCancelled           = errors.New("order has been cancelled")
	ErrAlreadyPaid              = errors.New("order is already paid")
	ErrUnsupportedPaymentMethod = errors.New("payment method does not use transfer QR")
	ErrProofAlreadyReviewed     = errors.New("payment proof has already been reviewed")
	ErrProofSuperseded          = errors.New("a newer payment proof is awaiting review")
	ErrUnauthorized             = errors.New("admin privileges required")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TransitionError reports a move the status graph forbids, or a guard that
// no longer holds when the order is re-read under lock.
type TransitionError struct {
	Field  string // "status" or "paymentStatus"
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot change %s from %s to %s", e.Field, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// toValidationError converts payment and validator errors; anything else passes through.
func toValidationError(err error) error {
	var fe *payment.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Message: fe.Message}
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Message: describeValidation(verrs[0])}
	}
	return err
}

func describeValidation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
