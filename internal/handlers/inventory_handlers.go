package handlers

import (
	"net/http"
	"strconv"

	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InventoryHandler exposes the staff inventory endpoints.
type InventoryHandler struct {
	inventoryService    services.InventoryService
	notificationService services.NotificationService
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(is services.InventoryService, ns services.NotificationService) *InventoryHandler {
	return &InventoryHandler{inventoryService: is, notificationService: ns}
}

// UpdateInventory applies a batch of manual stock edits to a shift.
func (h *InventoryHandler) UpdateInventory(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	var req services.UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	items, err := h.inventoryService.UpdateInventory(shiftID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "UpdateInventory: error from inventoryService.UpdateInventory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetShiftInventory returns the live stock state of every shift item.
func (h *InventoryHandler) GetShiftInventory(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	statuses, err := h.inventoryService.GetShiftInventory(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShiftInventory: error from inventoryService.GetShiftInventory")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": statuses})
}

// GetShiftLedger returns the append-only adjustment ledger for a shift.
func (h *InventoryHandler) GetShiftLedger(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	entries, err := h.inventoryService.GetShiftLedger(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShiftLedger: error from inventoryService.GetShiftLedger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetNotificationLog returns the queued/skipped notification rows for a shift.
func (h *InventoryHandler) GetNotificationLog(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondValidationFailed(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.notificationService.GetShiftLog(shiftID, limit)
	if err != nil {
		respondServiceError(c, err, "GetNotificationLog: error from notificationService.GetShiftLog")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}
