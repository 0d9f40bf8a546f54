package user

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"blockify-backend/internal/auth"
	"blockify-backend/internal/models"
	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"
	"blockify-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type UserListItem struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserListResponse struct {
	Users []UserListItem `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Password *string `json:"password,omitempty" binding:"omitempty,min=6"`
	Role     *string `json:"role,omitempty" binding:"omitempty,oneof=admin user"`
	IsActive *bool   `json:"isActive,omitempty"`
}

type Handler struct {
	identity *services.IdentityService
}

func NewHandler(identity *services.IdentityService) *Handler {
	return &Handler{identity: identity}
}

func toListItem(u models.User) UserListItem {
	return UserListItem{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	users, total, err := h.identity.FindUsers(c.Request.Context(), page, limit)
	if err != nil {
		logger.Log.Error("list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to fetch users"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Users retrieved successfully", UserListResponse{
		Users: lo.Map(users, func(u models.User, _ int) UserListItem { return toListItem(u) }),
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// CreateUser opens an account; role defaults to customer.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}

	u, err := h.identity.CreateUser(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
			return
		}
		logger.Log.Error("create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create user"))
		return
	}
	c.JSON(http.StatusCreated, utils.NewSuccessResponse("User created successfully", toListItem(u)))
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid user ID"))
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Password == nil && req.Role == nil && req.IsActive == nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	operator, _ := auth.PrincipalFrom(c)
	if uint(id) == operator.UserID && req.IsActive != nil && !*req.IsActive {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Admins cannot deactivate themselves"))
		return
	}

	u, err := h.identity.UpdateUser(c.Request.Context(), uint(id), services.UserUpdate{
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
	}, operator.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "User not found"))
		case errors.Is(err, services.ErrOptimisticLock):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		default:
			logger.Log.Error("update user", zap.Uint64("user_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to update user"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated successfully", toListItem(u)))
}
