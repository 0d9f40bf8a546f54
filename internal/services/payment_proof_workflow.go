package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"blockify-backend/internal/models"
	"blockify-backend/internal/port"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ProofDecision string

const (
	ProofDecisionAccept ProofDecision = "accept"
	ProofDecisionReject ProofDecision = "reject"
)

// ToProofDecision also accepts the resulting proof status ("accepted", "rejected").
func ToProofDecision(s string) (ProofDecision, error) {
	switch s {
	case string(ProofDecisionAccept), string(models.ProofStatusAccepted):
		return ProofDecisionAccept, nil
	case string(ProofDecisionReject), string(models.ProofStatusRejected):
		return ProofDecisionReject, nil
	}
	return "", newValidationError("decision", "must be accept or reject")
}

type SubmitProofInput struct {
	FileURL  string `json:"fileUrl" validate:"required,url,max=2048"`
	FileType string `json:"fileType" validate:"omitempty,oneof=image/jpeg image/png image/webp application/pdf"`
	Note     string `json:"note" validate:"max=500"`
}

// ProofReview is the outcome of a review, with the order as saved.
type ProofReview struct {
	Proof         models.PaymentProof
	Order         models.Order
	PaymentBefore models.PaymentStatus
}

// PaymentProofWorkflow records customer transfer evidence and the admin verdict on it.
type PaymentProofWorkflow struct {
	repo port.OrderRepository
	now  func() time.Time
}

func NewPaymentProofWorkflow(repo port.OrderRepository, now func() time.Time) *PaymentProofWorkflow {
	if now == nil {
		now = time.Now
	}
	return &PaymentProofWorkflow{repo: repo, now: now}
}

// SubmitProof stores a pending proof. Payment status does not change until review.
func (w *PaymentProofWorkflow) SubmitProof(ctx context.Context, orderID string, userID uint, in SubmitProofInput) (models.PaymentProof, models.Order, error) {
	in.FileURL = strings.TrimSpace(in.FileURL)
	in.Note = strings.TrimSpace(in.Note)
	if err := validate.Struct(in); err != nil {
		return models.PaymentProof{}, models.Order{}, toValidationError(err)
	}
	if userID == 0 {
		return models.PaymentProof{}, models.Order{}, newValidationError("userId", "is required")
	}

	var (
		proof models.PaymentProof
		order models.Order
	)
	err := w.repo.WithinTx(ctx, func(tx port.OrderRepository) error {
		var err error
		order, err = findOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if err := checkPayable(&order); err != nil {
			return err
		}

		proof = models.PaymentProof{
			ID:        newRecordID(),
			OrderID:   order.ID,
			UserID:    userID,
			FileURL:   in.FileURL,
			FileType:  in.FileType,
			Note:      in.Note,
			Status:    models.ProofStatusPending,
			CreatedAt: w.now(),
		}
		return tx.CreateProof(ctx, &proof)
	})
	if err != nil {
		return models.PaymentProof{}, models.Order{}, err
	}
	return proof, order, nil
}

// ReviewProof accepts or rejects a pending proof and moves the order's payment
// status to paid or failed in the same transaction.
func (w *PaymentProofWorkflow) ReviewProof(ctx context.Context, proofID string, decision ProofDecision, adminID uint) (ProofReview, error) {
	var review ProofReview
	err := w.repo.WithinTx(ctx, func(tx port.OrderRepository) error {
		var err error
		review, err = w.review(ctx, tx, proofID, "", decision, adminID)
		return err
	})
	return review, err
}

// review must run inside tx. A non-empty orderID pins the proof to that order.
func (w *PaymentProofWorkflow) review(ctx context.Context, tx port.OrderRepository, proofID, orderID string, decision ProofDecision, adminID uint) (ProofReview, error) {
	if adminID == 0 {
		return ProofReview{}, ErrUnauthorized
	}
	decision, err := ToProofDecision(string(decision))
	if err != nil {
		return ProofReview{}, err
	}

	proof, err := tx.FindProofByID(ctx, proofID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return ProofReview{}, ErrProofNotFound
		}
		return ProofReview{}, err
	}
	if orderID != "" && proof.OrderID != orderID {
		return ProofReview{}, ErrProofNotFound
	}
	if !proof.IsPending() {
		return ProofReview{}, ErrProofAlreadyReviewed
	}

	order, err := findOrder(ctx, tx, proof.OrderID)
	if err != nil {
		return ProofReview{}, err
	}

	siblings, err := tx.ListProofs(ctx, order.ID)
	if err != nil {
		return ProofReview{}, err
	}
	if latest, ok := lo.Find(siblings, func(p models.PaymentProof) bool { return p.IsPending() }); ok && latest.ID != proof.ID {
		return ProofReview{}, ErrProofSuperseded
	}

	target := models.PaymentStatusFailed
	proofStatus := models.ProofStatusRejected
	if decision == ProofDecisionAccept {
		target = models.PaymentStatusPaid
		proofStatus = models.ProofStatusAccepted
	}

	switch {
	case order.Status == models.OrderStatusCancelled && decision == ProofDecisionAccept:
		return ProofReview{}, ErrOrderCancelled
	case order.PaymentStatus == models.PaymentStatusPaid:
		return ProofReview{}, ErrAlreadyPaid
	case !canChangePayment(order.PaymentStatus, target) && order.PaymentStatus != target:
		return ProofReview{}, &TransitionError{
			Field: "paymentStatus",
			From:  string(order.PaymentStatus),
			To:    string(target),
		}
	}

	now := w.now()
	proof.Status = proofStatus
	proof.ReviewedBy = &adminID
	proof.ReviewedAt = &now
	if err := tx.SaveProof(ctx, &proof); err != nil {
		if errors.Is(err, port.ErrStaleProof) {
			return ProofReview{}, ErrProofAlreadyReviewed
		}
		return ProofReview{}, err
	}

	before := order.PaymentStatus
	order.PaymentStatus = target
	if err := saveOrder(ctx, tx, &order, nil, "paymentStatus", string(before), string(target)); err != nil {
		return ProofReview{}, err
	}

	return ProofReview{Proof: proof, Order: order, PaymentBefore: before}, nil
}

func findOrder(ctx context.Context, repo port.OrderRepository, orderID string) (models.Order, error) {
	order, err := repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

// saveOrder maps a lost version race to a TransitionError for the attempted change.
func saveOrder(ctx context.Context, tx port.OrderRepository, order *models.Order, entry *models.OrderStatusHistory, field, from, to string) error {
	err := tx.SaveOrder(ctx, order, entry)
	if errors.Is(err, port.ErrStaleOrder) {
		return &TransitionError{Field: field, From: from, To: to, Reason: "order was changed by another request"}
	}
	return err
}

func newRecordID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
