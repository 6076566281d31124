package handlers

import (
	"net/http"

	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ShiftHandler exposes the shift session endpoints.
type ShiftHandler struct {
	shiftService services.ShiftService
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(ss services.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftService: ss}
}

// CheckIn opens a new shift for a truck at a location.
func (h *ShiftHandler) CheckIn(c *gin.Context) {
	var req services.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	shift, err := h.shiftService.CheckIn(req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "CheckIn: error from shiftService.CheckIn")
		return
	}
	c.JSON(http.StatusCreated, shift)
}

// Checkout closes a shift. Closed shifts stop accepting orders permanently.
func (h *ShiftHandler) Checkout(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	shift, err := h.shiftService.Checkout(shiftID, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "Checkout: error from shiftService.Checkout")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// Pause suspends order intake, optionally announcing a resume time.
func (h *ShiftHandler) Pause(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	var req services.PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	shift, err := h.shiftService.Pause(shiftID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "Pause: error from shiftService.Pause")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// Resume reopens order intake on a paused shift.
func (h *ShiftHandler) Resume(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	shift, err := h.shiftService.Resume(shiftID, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "Resume: error from shiftService.Resume")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// UpdateConfig tunes throttle, slot capacity or notes on a running shift.
func (h *ShiftHandler) UpdateConfig(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	var req services.ShiftConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	shift, err := h.shiftService.UpdateConfig(shiftID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "UpdateConfig: error from shiftService.UpdateConfig")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// GetShift returns one shift by ID.
func (h *ShiftHandler) GetShift(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	shift, err := h.shiftService.GetShiftByID(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShift: error from shiftService.GetShiftByID")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// GetActiveShiftForTruck returns the truck's current open shift, if any.
func (h *ShiftHandler) GetActiveShiftForTruck(c *gin.Context) {
	truckID, ok := parseIDParam(c, "truckId")
	if !ok {
		return
	}

	shift, err := h.shiftService.GetActiveShiftForTruck(truckID)
	if err != nil {
		respondServiceError(c, err, "GetActiveShiftForTruck: error from shiftService.GetActiveShiftForTruck")
		return
	}
	c.JSON(http.StatusOK, shift)
}

// GetOpenShifts lists every shift that is currently checked in or paused.
func (h *ShiftHandler) GetOpenShifts(c *gin.Context) {
	shifts, err := h.shiftService.GetOpenShifts()
	if err != nil {
		respondServiceError(c, err, "GetOpenShifts: error from shiftService.GetOpenShifts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts})
}
