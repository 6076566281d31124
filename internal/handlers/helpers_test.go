package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fusionx_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondServiceErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", services.ErrValidation, http.StatusBadRequest},
		{"illegal transition", services.ErrInvalidTransition, http.StatusBadRequest},
		{"closed order", services.ErrOrderClosed, http.StatusBadRequest},
		{"order not found", services.ErrOrderNotFound, http.StatusNotFound},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"shift paused", services.ErrShiftPaused, http.StatusConflict},
		{"insufficient stock", services.ErrInsufficientStock, http.StatusConflict},
		{"throttled", services.ErrThrottled, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondServiceError(c, tt.err, "test")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
