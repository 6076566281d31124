package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
	"fusionx_backend/pkg/utils"
)

// AdmissionThrottle limits customer order intake per shift in rolling
// windows. Satisfied by the Redis-backed throttle.
type AdmissionThrottle interface {
	Admit(ctx context.Context, shiftID int64, limit int, now time.Time) (bool, error)
}

// --- DTOs ---

// CustomerOrderLine is one requested line of a customer order. Either the
// shift-scoped item ID or the catalog item ID must be set.
type CustomerOrderLine struct {
	TruckMenuItemID *int64                 `json:"truck_menu_item_id"`
	MenuItemID      *int64                 `json:"menu_item_id"`
	Qty             int                    `json:"qty" binding:"required,gt=0"`
	Modifiers       map[string]interface{} `json:"modifiers"`
}

// CreateCustomerOrderRequest is the customer-facing order intake payload.
type CreateCustomerOrderRequest struct {
	ShiftID       int64               `json:"shift_id" binding:"required"`
	CustomerName  *string             `json:"customer_name"`
	CustomerPhone *string             `json:"customer_phone"`
	CustomerEmail *string             `json:"customer_email"`
	LoyaltyID     *string             `json:"loyalty_id"`
	TipCents      int64               `json:"tip_cents"`
	Lines         []CustomerOrderLine `json:"lines" binding:"required,dive"`
}

// PaymentNotification is the payment provider webhook payload.
type PaymentNotification struct {
	Status           string `json:"status" binding:"required"`
	PaymentReference string `json:"payment_reference"`
	AmountCents      int64  `json:"amount_cents"`
}

// PaymentResult reports what the webhook did. Ignored is true when the
// provider status was not "paid"; Applied is true only on the first
// confirmation that ran the fulfillment side effects.
type PaymentResult struct {
	Ignored bool              `json:"ignored,omitempty"`
	Applied bool              `json:"applied"`
	State   models.OrderState `json:"state"`
	Points  int               `json:"loyalty_points_awarded,omitempty"`
}

// LoyaltyAccount is a customer's loyalty balance with recent history.
type LoyaltyAccount struct {
	CustomerPhone string                 `json:"customer_phone"`
	Balance       int                    `json:"balance"`
	Entries       []models.LoyaltyLedger `json:"entries"`
}

// --- FulfillmentService Interface ---

type FulfillmentService interface {
	CreateCustomerOrder(ctx context.Context, req CreateCustomerOrderRequest) (*models.Order, error)
	ConfirmPayment(orderID int64, notif PaymentNotification) (*PaymentResult, error)
	AutoReconcile(shiftID int64) (int64, error)
	GetLoyaltyAccount(customerPhone string) (*LoyaltyAccount, error)
}

type fulfillmentService struct {
	orderRepo     repositories.OrderRepository
	menuRepo      repositories.MenuRepository
	shiftRepo     repositories.ShiftRepository
	inventoryRepo repositories.InventoryRepository
	loyaltyRepo   repositories.LoyaltyRepository
	throttle      AdmissionThrottle
	events        EventSink
	notifier      Notifier
	db            *sql.DB
	taxRateBp     int64 // basis points applied to the subtotal
}

// NewFulfillmentService creates a new instance of FulfillmentService.
func NewFulfillmentService(
	or repositories.OrderRepository,
	mr repositories.MenuRepository,
	sr repositories.ShiftRepository,
	ir repositories.InventoryRepository,
	lr repositories.LoyaltyRepository,
	throttle AdmissionThrottle,
	events EventSink,
	notifier Notifier,
	db *sql.DB,
	taxRateBp int64,
) FulfillmentService {
	return &fulfillmentService{
		orderRepo:     or,
		menuRepo:      mr,
		shiftRepo:     sr,
		inventoryRepo: ir,
		loyaltyRepo:   lr,
		throttle:      throttle,
		events:        events,
		notifier:      notifier,
		db:            db,
		taxRateBp:     taxRateBp,
	}
}

func (s *fulfillmentService) CreateCustomerOrder(ctx context.Context, req CreateCustomerOrderRequest) (*models.Order, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", ErrValidation)
	}
	for _, line := range req.Lines {
		if line.Qty <= 0 {
			return nil, fmt.Errorf("%w: line quantity must be positive", ErrValidation)
		}
		if line.TruckMenuItemID == nil && line.MenuItemID == nil {
			return nil, fmt.Errorf("%w: each line needs truck_menu_item_id or menu_item_id", ErrValidation)
		}
	}

	shift, err := s.shiftRepo.GetShiftByID(nil, req.ShiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to fetch shift %d: %w", req.ShiftID, err)
	}
	switch shift.Status {
	case models.ShiftCheckedOut:
		return nil, ErrShiftClosed
	case models.ShiftPaused:
		return nil, ErrShiftPaused
	}

	// Redis being down must not take ordering down with it. A nil
	// throttle means the deployment runs without one.
	if s.throttle != nil {
		admitted, err := s.throttle.Admit(ctx, shift.ID, shift.ThrottlePer5Min, time.Now())
		if err != nil {
			utils.LogError(err, "order throttle check failed, admitting")
			admitted = true
		}
		if !admitted {
			return nil, ErrThrottled
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	var subtotal int64
	itemsToCreate := make([]models.OrderItem, 0, len(req.Lines))
	for _, line := range req.Lines {
		var tmi *models.TruckMenuItem
		if line.TruckMenuItemID != nil {
			tmi, err = s.menuRepo.GetTruckMenuItemByID(tx, *line.TruckMenuItemID)
		} else {
			tmi, err = s.menuRepo.EnsureTruckMenuItem(tx, shift.ID, *line.MenuItemID)
		}
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: menu item for order line", ErrNotFound)
			}
			return nil, fmt.Errorf("failed to resolve order line item: %w", err)
		}
		if tmi.ShiftID != shift.ID {
			return nil, fmt.Errorf("%w: item %d belongs to another shift", ErrValidation, tmi.ID)
		}
		if !tmi.Visible {
			return nil, fmt.Errorf("%w: item %d is not on the menu", ErrValidation, tmi.ID)
		}
		if tmi.OutOfStock {
			return nil, fmt.Errorf("%w: item %d", ErrInsufficientStock, tmi.ID)
		}
		if tmi.StockCount != nil && *tmi.StockCount < line.Qty {
			return nil, fmt.Errorf("%w: item %d has %d left, requested %d",
				ErrInsufficientStock, tmi.ID, *tmi.StockCount, line.Qty)
		}

		var base *models.MenuItem
		if tmi.MenuItemID != nil {
			base, err = s.menuRepo.GetItemByID(tx, *tmi.MenuItemID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("failed to fetch base item %d: %w", *tmi.MenuItemID, err)
			}
		}
		price, ok := tmi.EffectivePriceCents(base)
		if !ok {
			return nil, fmt.Errorf("%w: item %d has no price", ErrValidation, tmi.ID)
		}
		subtotal += price * int64(line.Qty)

		modifiersJSON := "{}"
		if len(line.Modifiers) > 0 {
			raw, merr := json.Marshal(line.Modifiers)
			if merr != nil {
				return nil, fmt.Errorf("%w: invalid modifiers", ErrValidation)
			}
			modifiersJSON = string(raw)
		}
		tmiID := tmi.ID
		itemsToCreate = append(itemsToCreate, models.OrderItem{
			MenuItemID:      tmi.MenuItemID,
			TruckMenuItemID: &tmiID,
			Name:            tmi.EffectiveName(base),
			Qty:             line.Qty,
			PriceCents:      price,
			ModifiersJSON:   modifiersJSON,
		})
	}

	tax := subtotal * s.taxRateBp / 10000
	tip := req.TipCents
	if tip < 0 {
		tip = 0
	}
	order := models.Order{
		ShiftID:       shift.ID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		LoyaltyID:     req.LoyaltyID,
		State:         models.StateNew,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TipCents:      tip,
		TotalCents:    subtotal + tax + tip,
	}
	if _, err := s.orderRepo.CreateOrder(tx, &order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	for i := range itemsToCreate {
		itemsToCreate[i].OrderID = order.ID
		if _, err := s.orderRepo.CreateOrderItem(tx, &itemsToCreate[i]); err != nil {
			return nil, fmt.Errorf("failed to create order line: %w", err)
		}
	}
	order.Items = itemsToCreate

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	s.events.BroadcastStaff(order.ShiftID, map[string]interface{}{
		"event":       "new_order",
		"order_id":    order.ID,
		"total_cents": order.TotalCents,
	})
	s.notifier.NotifyNewOrder(order.ShiftID, order.ID)
	return &order, nil
}

// lowStockAlert is one item that crossed its low-stock threshold during
// payment fulfillment.
type lowStockAlert struct {
	tmiID      int64
	name       string
	stockCount *int
}

// ConfirmPayment applies a payment provider notification. The whole
// fulfillment is one transaction keyed on the locked order row, which makes
// retried webhooks idempotent: only the NEW -> PAID edge runs the stock
// decrement, ledger writes and loyalty award.
func (s *fulfillmentService) ConfirmPayment(orderID int64, notif PaymentNotification) (*PaymentResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.orderRepo.GetOrderForUpdate(tx, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	if notif.Status != "paid" {
		return &PaymentResult{Ignored: true, State: order.State}, nil
	}
	if order.State != models.StateNew && order.State != models.StatePaid {
		// Already fulfilled and moved on; report where the order is.
		return &PaymentResult{State: order.State}, nil
	}

	now := time.Now()
	first, err := applyPaymentConfirmation(order, notif.PaymentReference, now)
	if err != nil {
		return nil, err
	}
	if !first {
		return &PaymentResult{State: order.State}, nil
	}

	items, err := s.orderRepo.GetOrderItems(tx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order lines: %w", err)
	}

	var alerts []lowStockAlert
	for _, item := range items {
		if item.TruckMenuItemID == nil {
			continue
		}
		tmi, terr := s.menuRepo.GetTruckMenuItemByID(tx, *item.TruckMenuItemID)
		if terr != nil {
			if errors.Is(terr, repositories.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to read item %d: %w", *item.TruckMenuItemID, terr)
		}
		wasLow := tmi.LowStock()

		reserved, tracked, rerr := s.menuRepo.ReserveStock(tx, *item.TruckMenuItemID, item.Qty, now)
		if rerr != nil {
			if errors.Is(rerr, repositories.ErrInsufficientStock) {
				// All-or-nothing across lines: the deferred rollback
				// discards every reservation staged so far.
				return nil, fmt.Errorf("%w: item %d has %d left, order needs %d",
					ErrInsufficientStock, *item.TruckMenuItemID, reserved.Int64, item.Qty)
			}
			return nil, fmt.Errorf("failed to reserve stock for item %d: %w", *item.TruckMenuItemID, rerr)
		}
		if !tracked {
			continue
		}

		adj := models.InventoryAdjustment{
			ShiftID:         order.ShiftID,
			TruckMenuItemID: item.TruckMenuItemID,
			MenuItemID:      item.MenuItemID,
			Delta:           -item.Qty,
			Reason:          models.AdjustmentReasonPayment,
			CreatedAt:       now,
		}
		if item.Qty != 0 {
			if _, aerr := s.inventoryRepo.CreateAdjustment(tx, &adj); aerr != nil {
				return nil, fmt.Errorf("failed to record inventory adjustment: %w", aerr)
			}
		}

		tmi, terr = s.menuRepo.GetTruckMenuItemByID(tx, *item.TruckMenuItemID)
		if terr != nil {
			return nil, fmt.Errorf("failed to re-read item %d: %w", *item.TruckMenuItemID, terr)
		}
		// Alert on the crossing, not on every payment that touches an
		// already-low item.
		if !wasLow && tmi.LowStock() {
			alerts = append(alerts, lowStockAlert{
				tmiID:      tmi.ID,
				name:       tmi.EffectiveName(nil),
				stockCount: tmi.StockCount,
			})
		}
	}

	// A zero total at confirmation time means pricing never ran; rebuild it
	// from the captured lines so loyalty math has something to work with.
	if order.TotalCents == 0 {
		var total int64
		for _, item := range items {
			total += item.PriceCents * int64(item.Qty)
		}
		order.TotalCents = total
	}

	points := 0
	if order.CustomerPhone != nil && *order.CustomerPhone != "" && order.TotalCents > 0 {
		points = loyaltyPointsFor(order.TotalCents)
		entry := models.LoyaltyLedger{
			CustomerPhone: *order.CustomerPhone,
			Points:        points,
			OrderID:       &order.ID,
			Note:          "order payment",
			CreatedAt:     now,
		}
		if _, lerr := s.loyaltyRepo.CreateEntry(tx, &entry); lerr != nil {
			return nil, fmt.Errorf("failed to award loyalty points: %w", lerr)
		}
		order.LoyaltyPointsAwarded = points
	}

	if err := s.orderRepo.UpdateOrderLifecycle(tx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", order.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment transaction: %w", err)
	}

	s.events.Broadcast(order.ShiftID, map[string]interface{}{
		"event":    "payment_received",
		"order_id": order.ID,
		"state":    order.State,
	})
	for _, alert := range alerts {
		event := map[string]interface{}{
			"event":              "low_stock",
			"truck_menu_item_id": alert.tmiID,
			"item_name":          alert.name,
		}
		if alert.stockCount != nil {
			event["stock_count"] = *alert.stockCount
		}
		s.events.BroadcastStaff(order.ShiftID, event)
		s.notifier.NotifyLowStock(order.ShiftID, alert.name, alert.stockCount)
	}

	return &PaymentResult{Applied: true, State: order.State, Points: points}, nil
}

// AutoReconcile pushes every stuck PAID order of the shift into the queue.
// Recovery path for orders whose advance was lost, e.g. a crashed display.
func (s *fulfillmentService) AutoReconcile(shiftID int64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	updated, err := s.orderRepo.ReconcilePaidToQueue(tx, shiftID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile shift %d: %w", shiftID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reconcile transaction: %w", err)
	}

	if updated > 0 {
		s.events.BroadcastStaff(shiftID, map[string]interface{}{
			"event":   "order_advanced",
			"bulk":    true,
			"updated": updated,
			"state":   models.StateInQueue,
		})
	}
	return updated, nil
}

func (s *fulfillmentService) GetLoyaltyAccount(customerPhone string) (*LoyaltyAccount, error) {
	if customerPhone == "" {
		return nil, fmt.Errorf("%w: customer phone is required", ErrValidation)
	}
	balance, err := s.loyaltyRepo.GetBalance(nil, customerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to get loyalty balance: %w", err)
	}
	entries, err := s.loyaltyRepo.GetEntriesByPhone(customerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to get loyalty history: %w", err)
	}
	return &LoyaltyAccount{CustomerPhone: customerPhone, Balance: balance, Entries: entries}, nil
}
