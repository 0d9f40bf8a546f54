package middleware

import (
	"context"
	"errors"
	"net/http"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"
	"blockify-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
}

// AuthMiddleware admits any active user and stores the principal on the context.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c, authn); !ok {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, authn Authenticator) (auth.Principal, bool) {
	tokenString, err := auth.ExtractToken(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
		return auth.Principal{}, false
	}

	principal, err := authn.Authenticate(c.Request.Context(), tokenString)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Token has been revoked"))
		case errors.Is(err, services.ErrInvalidToken),
			errors.Is(err, services.ErrUserNotFound),
			errors.Is(err, services.ErrUserInactive):
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid or expired token"))
		default:
			logger.Log.Error("authenticate request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to check token status"))
		}
		return auth.Principal{}, false
	}

	auth.SetPrincipal(c, principal)
	return principal, true
}
