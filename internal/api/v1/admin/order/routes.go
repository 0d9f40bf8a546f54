package order

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	orders := router.Group("/orders")
	{
		orders.GET("", h.ListOrders)
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.PATCH("/:id/status", h.UpdateStatus)
		orders.PATCH("/:id/payment-status", h.UpdatePaymentStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/refund", h.ProcessRefund)
		orders.GET("/:id/payment-qr", h.PaymentQR)
		orders.GET("/:id/payment-proofs", h.ListProofs)
		orders.POST("/:id/payment-proofs", h.SubmitProof)
	}
}
