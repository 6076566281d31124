package handlers

import (
	"fmt"
	"net/http"

	"fusionx_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler exposes the end-of-shift reporting endpoints.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(as services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: as}
}

// GetShiftDigest returns the aggregated end-of-shift report.
func (h *AnalyticsHandler) GetShiftDigest(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	digest, err := h.analyticsService.GetShiftDigest(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShiftDigest: error from analyticsService.GetShiftDigest")
		return
	}
	c.JSON(http.StatusOK, digest)
}

// ExportShiftOrdersCSV streams the shift's order book as a CSV download.
func (h *AnalyticsHandler) ExportShiftOrdersCSV(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	data, err := h.analyticsService.ExportShiftOrdersCSV(shiftID)
	if err != nil {
		respondServiceError(c, err, "ExportShiftOrdersCSV: error from analyticsService.ExportShiftOrdersCSV")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="shift-%d-orders.csv"`, shiftID))
	c.Data(http.StatusOK, "text/csv", data)
}
