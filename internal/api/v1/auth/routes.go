package auth

import (
	"blockify-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, authn middleware.Authenticator) {
	auth := router.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/logout", middleware.AuthMiddleware(authn), h.Logout)
	auth.GET("/me", middleware.AuthMiddleware(authn), h.Me)
}
