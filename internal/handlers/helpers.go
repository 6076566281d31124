package handlers

import (
	"errors"
	"net/http"

	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive int64 path parameter. On failure it writes
// the 400 response and returns false.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := utils.StrToInt64(c.Param(name))
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" path parameter.", c.Param(name)))
		return 0, false
	}
	return id, true
}

// staffIDFromContext returns the authenticated staff ID set by AuthMiddleware,
// or nil on unauthenticated routes.
func staffIDFromContext(c *gin.Context) *int64 {
	v, exists := c.Get("staffID")
	if !exists {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}

// respondServiceError maps service sentinel errors onto API error responses.
func respondServiceError(c *gin.Context, err error, context string) {
	utils.LogError(err, context)
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Input validation failed.", err.Error()))
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrShiftNotFound),
		errors.Is(err, services.ErrStaffNotFound),
		errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found.", err.Error()))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid credentials.", err.Error()))
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrOrderClosed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Order state does not allow this operation.", err.Error()))
	case errors.Is(err, services.ErrShiftClosed),
		errors.Is(err, services.ErrShiftPaused):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Shift is not accepting orders.", err.Error()))
	case errors.Is(err, services.ErrInsufficientStock):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Insufficient stock for one or more items.", err.Error()))
	case errors.Is(err, services.ErrThrottled):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusTooManyRequests, "THROTTLED", "Order intake is throttled for this shift. Try again shortly.", err.Error()))
	case errors.Is(err, services.ErrConflict):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "Resource conflict.", err.Error()))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Internal server error.", "Internal error"))
	}
}
