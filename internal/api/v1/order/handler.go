package order

import (
	"net/http"

	"blockify-backend/internal/api/v1/common"
	"blockify-backend/internal/auth"
	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// Handler serves the signed-in customer's own orders.
type Handler struct {
	orders *services.CustomerOrderService
}

func NewHandler(orders *services.CustomerOrderService) *Handler {
	return &Handler{orders: orders}
}

func (h *Handler) GetOrder(c *gin.Context) {
	view, err := h.orders.GetOrder(c.Request.Context(), c.Param("number"), principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", common.NewOrderResponse(view)))
}

func (h *Handler) PaymentQR(c *gin.Context) {
	qr, err := h.orders.PaymentQR(c.Request.Context(), c.Param("number"), principal(c))
	if err != nil {
		common.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", qr))
}

// SubmitProof records the customer's transfer evidence for admin review.
func (h *Handler) SubmitProof(c *gin.Context) {
	var req services.SubmitProofInput
	if !utils.BindAndValidate(c, &req) {
		return
	}

	proof, err := h.orders.SubmitProof(c.Request.Context(), c.Param("number"), req, principal(c))
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
