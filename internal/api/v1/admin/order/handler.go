package order

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"blockify-backend/internal/api/v1/common"
	"blockify-backend/internal/auth"
	"blockify-backend/internal/models"
	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type Handler struct {
	orders *services.AdminOrderService
}

func NewHandler(orders *services.AdminOrderService) *Handler {
	return &Handler{orders: orders}
}

// ListOrders returns one page of orders, Processing orders first by urgency.
func (h *Handler) ListOrders(c *gin.Context) {
	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid query parameters"))
		return
	}

	filter := models.OrderFilter{
		Search: strings.TrimSpace(query.Search),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.Status != "" {
		status, err := models.ToOrderStatus(query.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}
		filter.Status = &status
	}
	if query.PaymentStatus != "" {
		status, err := models.ToPaymentStatus(query.PaymentStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}
		filter.PaymentStatus = &status
	}
	if filter.Limit == 0 {
		filter.Limit = models.DefaultOrderListLimit
	}

	views, total, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		common.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", OrderListResponse{
		Orders: lo.Map(views, func(v services.OrderView, _ int) common.OrderResponse {
			return common.NewOrderResponse(v)
		}),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}))
}

func (h *Handler) GetOrder(c *gin.Context) {
	view, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", common.NewOrderResponse(view)))
}

// CreateOrder records a manual order. Totals are computed server side.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req services.NewOrderInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	view, err := h.orders.CreateOrder(c.Request.Context(), req, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Order created successfully", common.NewOrderResponse(view)))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	status, err := models.ToOrderStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	view, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), status, req.Note, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Order status updated", common.NewOrderResponse(view)))
}

// UpdatePaymentStatus reviews the referenced proof when proofId is set, otherwise
// applies a manual payment status change.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	view, err := h.orders.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), services.PaymentStatusUpdate{
		PaymentStatus: req.PaymentStatus,
		ProofID:       req.ProofID,
		ProofDecision: req.ProofStatus,
	}, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Payment status updated", common.NewOrderResponse(view)))
}

func (h *Handler) CancelOrder(c *gin.Context) {
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}

	view, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Order cancelled", common.NewOrderResponse(view)))
}

func (h *Handler) ProcessRefund(c *gin.Context) {
	var req ReasonRequest
	if !bindOptional(c, &req) {
		return
	}

	view, err := h.orders.ProcessRefund(c.Request.Context(), c.Param("id"), req.Reason, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Refund processed", common.NewOrderResponse(view)))
}

func (h *Handler) PaymentQR(c *gin.Context) {
	qr, err := h.orders.GeneratePaymentQR(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", qr))
}

func (h *Handler) ListProofs(c *gin.Context) {
	proofs, err := h.orders.ListProofs(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", lo.Map(proofs, func(p models.PaymentProof, _ int) common.PaymentProofResponse {
		return common.NewPaymentProofResponse(p)
	})))
}

// SubmitProof attaches transfer evidence an admin received outside the storefront.
func (h *Handler) SubmitProof(c *gin.Context) {
	var req services.SubmitProofInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	proof, err := h.orders.SubmitProof(c.Request.Context(), c.Param("id"), req, principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, utils.NewSuccessResponse("Payment proof submitted", common.NewPaymentProofResponse(proof)))
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}

// bindOptional accepts an empty body, including a chunked one with no length.
func bindOptional(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 || c.Request.Body == nil {
		return true
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err == nil && len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return utils.BindAndValidate(c, obj)
}
