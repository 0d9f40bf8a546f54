package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnsupported  ErrorKind = "unsupported"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindInternal     ErrorKind = "internal"
)

// Classify groups a use case error for metrics and for the HTTP boundary.
func Classify(err error) ErrorKind {
	var (
		verr *ValidationError
		terr *TransitionError
	)
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrUnsupportedPaymentMethod):
		return KindUnsupported
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrProofNotFound):
		return KindNotFound
	case errors.As(err, &terr),
		errors.Is(err, ErrProofAlreadyReviewed),
		errors.Is(err, ErrProofSuperseded),
		errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrOrderCancelled):
		return KindConflict
	}
	return KindInternal
}

type Metrics struct {
	Events   *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// NewMetrics registers the order counters on reg; a nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockify",
			Subsystem: "orders",
			Name:      "events_total",
			Help:      "Committed order changes by event type.",
		}, []string{"type"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockify",
			Subsystem: "orders",
			Name:      "use_case_failures_total",
			Help:      "Rejected order use cases by use case and error kind.",
		}, []string{"use_case", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Events, m.Failures)
	}
	return m
}
