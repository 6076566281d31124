package handlers

import (
	"net/http"

	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the auth service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// Login authenticates a staff member and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	pair, err := h.authService.Login(req)
	if err != nil {
		respondServiceError(c, err, "Login: error from authService.Login")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh trades a valid refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req services.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	pair, err := h.authService.Refresh(req)
	if err != nil {
		respondServiceError(c, err, "Refresh: error from authService.Refresh")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Me returns the authenticated staff member's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	staffID := staffIDFromContext(c)
	if staffID == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated.", ""))
		return
	}

	staff, err := h.authService.GetProfile(*staffID)
	if err != nil {
		respondServiceError(c, err, "Me: error from authService.GetProfile")
		return
	}
	c.JSON(http.StatusOK, staff)
}
