package middleware

import (
	"net/http"

	"blockify-backend/internal/utils"
	"blockify-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminAuthMiddleware validates that the user has admin privileges.
func AdminAuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authenticate(c, authn)
		if !ok {
			return
		}

		if !principal.IsAdmin() {
			logger.Log.Warn("unauthorized admin access attempt",
				zap.Uint("user_id", principal.UserID),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			return
		}

		c.Next()
	}
}
