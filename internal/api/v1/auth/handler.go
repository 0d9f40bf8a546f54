package auth

import (
	"errors"
	"net/http"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"
	"blockify-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

type Handler struct {
	identity *services.IdentityService
}

func NewHandler(identity *services.IdentityService) *Handler {
	return &Handler{identity: identity}
}

// Login issues a bearer token for an active user.
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	token, u, err := h.identity.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid username or password"))
		case errors.Is(err, services.ErrUserInactive):
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "User is disabled"))
		default:
			logger.Log.Error("login failed", zap.String("username", input.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Could not generate token"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged in successfully", UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Token:    token,
	}))
}

// Logout denylists the caller's token until it expires.
func (h *Handler) Logout(c *gin.Context) {
	tokenString, err := auth.ExtractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
		return
	}

	if err := h.identity.Logout(c.Request.Context(), tokenString); err != nil {
		logger.Log.Error("denylist token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to denylist token"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged out successfully", nil))
}

// Me returns the authenticated principal.
func (h *Handler) Me(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Not authenticated"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", UserResponse{ID: p.UserID, Username: p.Username, Role: p.Role}))
}
