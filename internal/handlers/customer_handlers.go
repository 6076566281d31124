package handlers

import (
	"net/http"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/services"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// CustomerHandler exposes the unauthenticated customer ordering surface:
// the shift menu, order intake, the pickup tracker and the payment webhook.
type CustomerHandler struct {
	fulfillmentService services.FulfillmentService
	orderService       services.OrderService
	menuService        services.MenuService
	trackerBaseURL     string
}

// NewCustomerHandler creates a new CustomerHandler. trackerBaseURL is the
// public origin encoded into pickup QR codes.
func NewCustomerHandler(fs services.FulfillmentService, os services.OrderService, ms services.MenuService, trackerBaseURL string) *CustomerHandler {
	return &CustomerHandler{
		fulfillmentService: fs,
		orderService:       os,
		menuService:        ms,
		trackerBaseURL:     trackerBaseURL,
	}
}

// GetShiftMenu returns the customer-visible menu for an open shift.
func (h *CustomerHandler) GetShiftMenu(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	menu, err := h.menuService.GetShiftMenu(shiftID)
	if err != nil {
		respondServiceError(c, err, "GetShiftMenu: error from menuService.GetShiftMenu")
		return
	}
	c.JSON(http.StatusOK, menu)
}

// CreateOrder takes a customer order for an open shift. The order is created
// in NEW and does not enter the kitchen until payment is confirmed.
func (h *CustomerHandler) CreateOrder(c *gin.Context) {
	var req services.CreateCustomerOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	order, err := h.fulfillmentService.CreateCustomerOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "CreateOrder: error from fulfillmentService.CreateCustomerOrder")
		return
	}
	c.JSON(http.StatusCreated, order)
}

// orderTrackerView is the public projection of an order. It omits customer
// contact details and money amounts.
type orderTrackerView struct {
	OrderID         int64             `json:"order_id"`
	State           models.OrderState `json:"state"`
	PickupETA       *time.Time        `json:"pickup_eta,omitempty"`
	PrepCompletedAt *time.Time        `json:"prep_completed_at,omitempty"`
	OnHoldUntil     *time.Time        `json:"on_hold_until,omitempty"`
}

// TrackOrder returns the public pickup-tracker view of an order.
func (h *CustomerHandler) TrackOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(orderID)
	if err != nil {
		respondServiceError(c, err, "TrackOrder: error from orderService.GetOrderByID")
		return
	}
	c.JSON(http.StatusOK, orderTrackerView{
		OrderID:         order.ID,
		State:           order.State,
		PickupETA:       order.PickupETA,
		PrepCompletedAt: order.PrepCompletedAt,
		OnHoldUntil:     order.OnHoldUntil,
	})
}

// PickupQR renders a PNG QR code pointing at the order's pickup tracker.
func (h *CustomerHandler) PickupQR(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	// Confirm the order exists before minting a code for it.
	if _, err := h.orderService.GetOrderByID(orderID); err != nil {
		respondServiceError(c, err, "PickupQR: error from orderService.GetOrderByID")
		return
	}

	target := h.trackerBaseURL + "/track/" + utils.Int64ToStr(orderID)
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		utils.LogError(err, "PickupQR: failed to encode QR code")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to generate QR code.", "Internal error"))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// PaymentWebhook receives payment provider notifications. The endpoint is
// idempotent: replays and out-of-order deliveries report the current order
// state without rerunning fulfillment side effects.
func (h *CustomerHandler) PaymentWebhook(c *gin.Context) {
	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var notif services.PaymentNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	result, err := h.fulfillmentService.ConfirmPayment(orderID, notif)
	if err != nil {
		respondServiceError(c, err, "PaymentWebhook: error from fulfillmentService.ConfirmPayment")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Reconcile sweeps PAID orders that missed their queue entry into IN_QUEUE.
// Called by the scheduler and available for manual triggering.
func (h *CustomerHandler) Reconcile(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	updated, err := h.fulfillmentService.AutoReconcile(shiftID)
	if err != nil {
		respondServiceError(c, err, "Reconcile: error from fulfillmentService.AutoReconcile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// GetLoyaltyAccount returns the points balance and history for a customer phone.
func (h *CustomerHandler) GetLoyaltyAccount(c *gin.Context) {
	phone := c.Param("phone")
	if phone == "" {
		utils.RespondValidationFailed(c, "phone path parameter is required")
		return
	}

	account, err := h.fulfillmentService.GetLoyaltyAccount(phone)
	if err != nil {
		respondServiceError(c, err, "GetLoyaltyAccount: error from fulfillmentService.GetLoyaltyAccount")
		return
	}
	c.JSON(http.StatusOK, account)
}
