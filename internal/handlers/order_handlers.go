package handlers

import (
	"net/http"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler exposes the staff-facing order lifecycle endpoints.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

type advanceOrderRequest struct {
	Target models.OrderState `json:"target" binding:"required"`
}

// AdvanceOrder moves an order one step forward through the kitchen pipeline.
func (h *OrderHandler) AdvanceOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var req advanceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	if !req.Target.Valid() {
		utils.RespondValidationFailed(c, "unknown target state: "+string(req.Target))
		return
	}

	order, err := h.orderService.AdvanceOrder(orderID, req.Target, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "AdvanceOrder: error from orderService.AdvanceOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

// HoldOrder parks an active order, for example while waiting on an ingredient.
func (h *OrderHandler) HoldOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var req services.HoldOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	order, err := h.orderService.HoldOrder(orderID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "HoldOrder: error from orderService.HoldOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

// ResumeOrder takes an order off hold and returns it to its previous state.
func (h *OrderHandler) ResumeOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orderService.ResumeOrder(orderID, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "ResumeOrder: error from orderService.ResumeOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels an open order, optionally recording a refund.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var req services.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	order, err := h.orderService.CancelOrder(orderID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "CancelOrder: error from orderService.CancelOrder")
		return
	}
	c.JSON(http.StatusOK, order)
}

// BulkAdvance closes out a batch of READY orders in one call.
func (h *OrderHandler) BulkAdvance(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}
	var req services.BulkAdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	updated, err := h.orderService.BulkAdvanceReady(shiftID, req, staffIDFromContext(c))
	if err != nil {
		respondServiceError(c, err, "BulkAdvance: error from orderService.BulkAdvanceReady")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetKDSTickets returns the open tickets for the kitchen display, oldest first.
func (h *OrderHandler) GetKDSTickets(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	tickets, err := h.orderService.GetKDSTickets(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetKDSTickets: error from orderService.GetKDSTickets")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// GetOrder returns one order with its line items.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		respondServiceError(c, err, "GetOrder: error from orderService.GetOrderByID")
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetShiftOrderSummary returns the shift dashboard aggregates.
func (h *OrderHandler) GetShiftOrderSummary(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	summary, err := h.orderService.GetShiftOrderSummary(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShiftOrderSummary: error from orderService.GetShiftOrderSummary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
