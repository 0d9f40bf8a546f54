package common

import (
	"errors"
	"net/http"

	"blockify-backend/internal/services"
	"blockify-backend/internal/utils"
	"blockify-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TransitionDetails is returned with 409 responses for illegal status changes.
type TransitionDetails struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// RespondError maps a use case error to a status code. Internal errors are logged
// in full and answered with a generic message.
func RespondError(c *gin.Context, err error) {
	switch services.Classify(err) {
	case services.KindValidation:
		var verr *services.ValidationError
		errors.As(err, &verr)
		c.JSON(http.StatusBadRequest, utils.NewErrorResponseWithCode("validation_error", err.Error(),
			utils.ValidationErrorData{Errors: []utils.ValidationErrorDetail{{Field: verr.Field, Message: verr.Message}}}))
	case services.KindUnsupported:
		c.JSON(http.StatusBadRequest, utils.NewErrorResponseWithCode("unsupported_payment_method", err.Error(), nil))
	case services.KindUnauthorized:
		c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, err.Error()))
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, err.Error()))
	case services.KindConflict:
		c.JSON(http.StatusConflict, utils.NewErrorResponseWithCode(conflictCode(err), err.Error(), transitionDetails(err)))
	default:
		logger.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Internal server error"))
	}
}

func conflictCode(err error) string {
	var terr *services.TransitionError
	switch {
	case errors.As(err, &terr):
		return "invalid_transition"
	case errors.Is(err, services.ErrProofAlreadyReviewed):
		return "proof_already_reviewed"
	case errors.Is(err, services.ErrProofSuperseded):
		return "proof_superseded"
	case errors.Is(err, services.ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, services.ErrOrderCancelled):
		return "order_cancelled"
	}
	return "conflict"
}

func transitionDetails(err error) any {
	var terr *services.TransitionError
	if !errors.As(err, &terr) {
		return nil
	}
	return TransitionDetails{Field: terr.Field, From: terr.From, To: terr.To}
}
