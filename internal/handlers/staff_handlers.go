package handlers

import (
	"net/http"

	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// StaffHandler exposes staff management and device registration endpoints.
type StaffHandler struct {
	staffService services.StaffService
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(ss services.StaffService) *StaffHandler {
	return &StaffHandler{staffService: ss}
}

func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req services.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	staff, err := h.staffService.CreateStaff(req)
	if err != nil {
		respondServiceError(c, err, "CreateStaff: error from staffService.CreateStaff")
		return
	}
	c.JSON(http.StatusCreated, staff)
}

func (h *StaffHandler) GetStaffList(c *gin.Context) {
	staff, err := h.staffService.GetStaffList()
	if err != nil {
		respondServiceError(c, err, "GetStaffList: error from staffService.GetStaffList")
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

func (h *StaffHandler) GetStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "staffId")
	if !ok {
		return
	}

	staff, err := h.staffService.GetStaffByID(id)
	if err != nil {
		respondServiceError(c, err, "GetStaff: error from staffService.GetStaffByID")
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "staffId")
	if !ok {
		return
	}
	var req services.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	staff, err := h.staffService.UpdateStaff(id, req)
	if err != nil {
		respondServiceError(c, err, "UpdateStaff: error from staffService.UpdateStaff")
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	id, ok := parseIDParam(c, "staffId")
	if !ok {
		return
	}

	if err := h.staffService.DeleteStaff(id); err != nil {
		respondServiceError(c, err, "DeleteStaff: error from staffService.DeleteStaff")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Devices ---

// RegisterDevice registers the caller's push-capable device. Re-registering
// an existing token reactivates it.
func (h *StaffHandler) RegisterDevice(c *gin.Context) {
	staffID := staffIDFromContext(c)
	if staffID == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated.", ""))
		return
	}
	var req services.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	device, err := h.staffService.RegisterDevice(*staffID, req)
	if err != nil {
		respondServiceError(c, err, "RegisterDevice: error from staffService.RegisterDevice")
		return
	}
	c.JSON(http.StatusCreated, device)
}

// GetDevices lists the caller's registered devices.
func (h *StaffHandler) GetDevices(c *gin.Context) {
	staffID := staffIDFromContext(c)
	if staffID == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated.", ""))
		return
	}

	devices, err := h.staffService.GetDevices(*staffID)
	if err != nil {
		respondServiceError(c, err, "GetDevices: error from staffService.GetDevices")
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

// RevokeDevice revokes one of the caller's devices. A device can only be
// revoked by the staff member who owns it.
func (h *StaffHandler) RevokeDevice(c *gin.Context) {
	staffID := staffIDFromContext(c)
	if staffID == nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Not authenticated.", ""))
		return
	}
	deviceID, ok := parseIDParam(c, "deviceId")
	if !ok {
		return
	}

	if err := h.staffService.RevokeDevice(*staffID, deviceID); err != nil {
		respondServiceError(c, err, "RevokeDevice: error from staffService.RevokeDevice")
		return
	}
	c.Status(http.StatusNoContent)
}
