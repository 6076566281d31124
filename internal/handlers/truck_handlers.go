package handlers

import (
	"net/http"
	"strconv"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// TruckHandler exposes fleet administration: trucks, locations, operating
// hours and the audit trail.
type TruckHandler struct {
	truckService services.TruckService
}

// NewTruckHandler creates a new TruckHandler.
func NewTruckHandler(ts services.TruckService) *TruckHandler {
	return &TruckHandler{truckService: ts}
}

// --- Trucks ---

func (h *TruckHandler) CreateTruck(c *gin.Context) {
	var truck models.Truck
	if err := c.ShouldBindJSON(&truck); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	if err := h.truckService.CreateTruck(&truck); err != nil {
		respondServiceError(c, err, "CreateTruck: error from truckService.CreateTruck")
		return
	}
	c.JSON(http.StatusCreated, truck)
}

func (h *TruckHandler) GetTrucks(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	trucks, err := h.truckService.GetTrucks(activeOnly)
	if err != nil {
		respondServiceError(c, err, "GetTrucks: error from truckService.GetTrucks")
		return
	}
	c.JSON(http.StatusOK, gin.H{"trucks": trucks})
}

func (h *TruckHandler) GetTruck(c *gin.Context) {
	id, ok := parseIDParam(c, "truckId")
	if !ok {
		return
	}

	truck, err := h.truckService.GetTruckByID(id)
	if err != nil {
		respondServiceError(c, err, "GetTruck: error from truckService.GetTruckByID")
		return
	}
	c.JSON(http.StatusOK, truck)
}

func (h *TruckHandler) UpdateTruck(c *gin.Context) {
	id, ok := parseIDParam(c, "truckId")
	if !ok {
		return
	}
	var truck models.Truck
	if err := c.ShouldBindJSON(&truck); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	truck.ID = id

	if err := h.truckService.UpdateTruck(&truck); err != nil {
		respondServiceError(c, err, "UpdateTruck: error from truckService.UpdateTruck")
		return
	}
	c.JSON(http.StatusOK, truck)
}

// --- Locations ---

func (h *TruckHandler) CreateLocation(c *gin.Context) {
	var location models.Location
	if err := c.ShouldBindJSON(&location); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	if err := h.truckService.CreateLocation(&location); err != nil {
		respondServiceError(c, err, "CreateLocation: error from truckService.CreateLocation")
		return
	}
	c.JSON(http.StatusCreated, location)
}

func (h *TruckHandler) GetLocations(c *gin.Context) {
	locations, err := h.truckService.GetLocations()
	if err != nil {
		respondServiceError(c, err, "GetLocations: error from truckService.GetLocations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (h *TruckHandler) GetLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "locationId")
	if !ok {
		return
	}

	location, err := h.truckService.GetLocationByID(id)
	if err != nil {
		respondServiceError(c, err, "GetLocation: error from truckService.GetLocationByID")
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *TruckHandler) UpdateLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "locationId")
	if !ok {
		return
	}
	var location models.Location
	if err := c.ShouldBindJSON(&location); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	location.ID = id

	if err := h.truckService.UpdateLocation(&location); err != nil {
		respondServiceError(c, err, "UpdateLocation: error from truckService.UpdateLocation")
		return
	}
	c.JSON(http.StatusOK, location)
}

// --- Operating hours ---

// SetOperatingHours replaces a truck's full weekly schedule.
func (h *TruckHandler) SetOperatingHours(c *gin.Context) {
	truckID, ok := parseIDParam(c, "truckId")
	if !ok {
		return
	}
	var req services.SetOperatingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	hours, err := h.truckService.SetOperatingHours(truckID, req)
	if err != nil {
		respondServiceError(c, err, "SetOperatingHours: error from truckService.SetOperatingHours")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

func (h *TruckHandler) GetOperatingHours(c *gin.Context) {
	truckID, ok := parseIDParam(c, "truckId")
	if !ok {
		return
	}

	hours, err := h.truckService.GetOperatingHours(truckID)
	if err != nil {
		respondServiceError(c, err, "GetOperatingHours: error from truckService.GetOperatingHours")
		return
	}
	c.JSON(http.StatusOK, gin.H{"hours": hours})
}

// --- Audit trail ---

// GetAuditTrail returns recent audit entries, optionally filtered by entity.
func (h *TruckHandler) GetAuditTrail(c *gin.Context) {
	entityType := c.Query("entity_type")

	var entityID *int64
	if raw := c.Query("entity_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.RespondValidationFailed(c, "entity_id must be an integer")
			return
		}
		entityID = &parsed
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

	entries, err := h.truckService.GetAuditTrail(entityType, entityID, limit)
	if err != nil {
		respondServiceError(c, err, "GetAuditTrail: error from truckService.GetAuditTrail")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
