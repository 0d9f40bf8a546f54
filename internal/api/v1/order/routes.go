package order

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup, h *Handler) {
	orders := router.Group("/orders")
	{
		orders.GET("/:number", h.GetOrder)
		orders.GET("/:number/payment-qr", h.PaymentQR)
		orders.POST("/:number/payment-proofs", h.SubmitProof)
	}
}
