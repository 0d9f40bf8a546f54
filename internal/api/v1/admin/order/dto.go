package order

import "blockify-backend/internal/api/v1/common"

type ListOrdersQuery struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"paymentStatus"`
	Search        string `form:"search" binding:"max=100"`
	Limit         int    `form:"limit"`
	Offset        int    `form:"offset"`
}

type OrderListResponse struct {
	Orders []common.OrderResponse `json:"orders"`
	Total  int64                  `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=500"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
	ProofID       string `json:"proofId"`
	ProofStatus   string `json:"proofStatus"`
}

// ReasonRequest is the optional body of cancel and refund.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
