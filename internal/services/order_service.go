package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
)

// --- DTOs ---

// HoldOrderRequest carries the hold metadata. Minutes defaults to 15.
type HoldOrderRequest struct {
	Reason  string `json:"reason"`
	Minutes *int   `json:"minutes" binding:"omitempty,gte=1"`
}

// CancelOrderRequest carries cancellation metadata.
type CancelOrderRequest struct {
	Reason       string `json:"reason"`
	Refund       bool   `json:"refund"`
	RefundReason string `json:"refund_reason"`
}

// BulkAdvanceRequest references the READY orders to close out.
type BulkAdvanceRequest struct {
	OrderIDs []int64 `json:"order_ids" binding:"required"`
}

// KDSTicket is one kitchen display ticket.
type KDSTicket struct {
	Order      models.Order `json:"order"`
	AgeSeconds int64        `json:"age_seconds"`
}

// ShiftOrderSummary aggregates a shift's order book for the staff dashboard.
type ShiftOrderSummary struct {
	ShiftID       int64                     `json:"shift_id"`
	CountsByState map[models.OrderState]int `json:"counts_by_state"`
	OpenOrders    int                       `json:"open_orders"`
	RevenueCents  int64                     `json:"revenue_cents"`
	AvgPrepSec    int64                     `json:"avg_prep_sec"`
}

// kdsStates are the states shown on the kitchen display, oldest first.
var kdsStates = []models.OrderState{
	models.StatePaid, models.StateInQueue, models.StateInProgress,
	models.StateReady, models.StateOnHold,
}

// --- OrderService Interface ---

type OrderService interface {
	AdvanceOrder(orderID int64, target models.OrderState, staffID *int64) (*models.Order, error)
	HoldOrder(orderID int64, req HoldOrderRequest, staffID *int64) (*models.Order, error)
	ResumeOrder(orderID int64, staffID *int64) (*models.Order, error)
	CancelOrder(orderID int64, req CancelOrderRequest, staffID *int64) (*models.Order, error)
	BulkAdvanceReady(shiftID int64, req BulkAdvanceRequest, staffID *int64) (int64, error)
	GetKDSTickets(shiftID int64) ([]KDSTicket, error)
	GetOrderByID(orderID int64) (*models.Order, error)
	GetShiftOrderSummary(shiftID int64) (*ShiftOrderSummary, error)
}

type orderService struct {
	orderRepo repositories.OrderRepository
	auditRepo repositories.AuditRepository
	events    EventSink
	db        *sql.DB
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	or repositories.OrderRepository,
	ar repositories.AuditRepository,
	events EventSink,
	db *sql.DB,
) OrderService {
	return &orderService{
		orderRepo: or,
		auditRepo: ar,
		events:    events,
		db:        db,
	}
}

// mutateOrder runs one locked lifecycle mutation: lock the row, apply the
// change, persist and audit, all in one transaction.
func (s *orderService) mutateOrder(
	orderID int64,
	staffID *int64,
	action string,
	apply func(order *models.Order, now time.Time) error,
) (*models.Order, error) {
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

	now := time.Now()
	fromState := order.State
	if err := apply(order, now); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateOrderLifecycle(tx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order %d: %w", orderID, err)
	}

	meta, _ := json.Marshal(map[string]string{
		"from": string(fromState),
		"to":   string(order.State),
	})
	entry := models.AuditLog{
		StaffID:      staffID,
		Action:       action,
		EntityType:   "order",
		EntityID:     &order.ID,
		MetadataJSON: string(meta),
		CreatedAt:    now,
	}
	if _, err := s.auditRepo.CreateEntry(tx, &entry); err != nil {
		return nil, fmt.Errorf("failed to record audit entry for order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return order, nil
}

func (s *orderService) AdvanceOrder(orderID int64, target models.OrderState, staffID *int64) (*models.Order, error) {
	order, err := s.mutateOrder(orderID, staffID, "order.advance", func(o *models.Order, now time.Time) error {
		return applyAdvance(o, target, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(order.ShiftID, map[string]interface{}{
		"event":    "order_advanced",
		"order_id": order.ID,
		"state":    order.State,
	})
	return order, nil
}

func (s *orderService) HoldOrder(orderID int64, req HoldOrderRequest, staffID *int64) (*models.Order, error) {
	minutes := defaultHoldMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}
	order, err := s.mutateOrder(orderID, staffID, "order.hold", func(o *models.Order, now time.Time) error {
		return applyHold(o, req.Reason, minutes, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(order.ShiftID, map[string]interface{}{
		"event":    "order_hold",
		"order_id": order.ID,
		"reason":   req.Reason,
	})
	return order, nil
}

func (s *orderService) ResumeOrder(orderID int64, staffID *int64) (*models.Order, error) {
	order, err := s.mutateOrder(orderID, staffID, "order.resume", func(o *models.Order, now time.Time) error {
		return applyResume(o, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(order.ShiftID, map[string]interface{}{
		"event":    "order_resume",
		"order_id": order.ID,
		"state":    order.State,
	})
	return order, nil
}

func (s *orderService) CancelOrder(orderID int64, req CancelOrderRequest, staffID *int64) (*models.Order, error) {
	order, err := s.mutateOrder(orderID, staffID, "order.cancel", func(o *models.Order, now time.Time) error {
		return applyCancel(o, req.Reason, req.Refund, req.RefundReason, now)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(order.ShiftID, map[string]interface{}{
		"event":    "order_cancel",
		"order_id": order.ID,
		"state":    order.State,
		"refund":   req.Refund,
	})
	return order, nil
}

func (s *orderService) BulkAdvanceReady(shiftID int64, req BulkAdvanceRequest, staffID *int64) (int64, error) {
	if len(req.OrderIDs) == 0 {
		return 0, fmt.Errorf("%w: order_ids must not be empty", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	updated, err := s.orderRepo.AdvanceReadyToPickedUp(tx, shiftID, req.OrderIDs, now)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk advance orders: %w", err)
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"requested": len(req.OrderIDs),
		"updated":   updated,
	})
	entry := models.AuditLog{
		StaffID:      staffID,
		Action:       "order.bulk_advance",
		EntityType:   "shift",
		EntityID:     &shiftID,
		MetadataJSON: string(meta),
		CreatedAt:    now,
	}
	if _, err := s.auditRepo.CreateEntry(tx, &entry); err != nil {
		return 0, fmt.Errorf("failed to record audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk advance transaction: %w", err)
	}

	s.events.Broadcast(shiftID, map[string]interface{}{
		"event":   "bulk_advance",
		"updated": updated,
	})
	return updated, nil
}

func (s *orderService) GetKDSTickets(shiftID int64) ([]KDSTicket, error) {
	orders, err := s.orderRepo.GetOrdersByShift(shiftID, kdsStates)
	if err != nil {
		return nil, fmt.Errorf("failed to get KDS orders: %w", err)
	}

	now := time.Now()
	tickets := make([]KDSTicket, 0, len(orders))
	for i := range orders {
		items, err := s.orderRepo.GetOrderItems(nil, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get items for order %d: %w", orders[i].ID, err)
		}
		orders[i].Items = items
		tickets = append(tickets, KDSTicket{
			Order:      orders[i],
			AgeSeconds: int64(now.Sub(orders[i].CreatedAt).Seconds()),
		})
	}
	return tickets, nil
}

func (s *orderService) GetOrderByID(orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(nil, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	items, err := s.orderRepo.GetOrderItems(nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for order %d: %w", orderID, err)
	}
	order.Items = items
	return order, nil
}

func (s *orderService) GetShiftOrderSummary(shiftID int64) (*ShiftOrderSummary, error) {
	orders, err := s.orderRepo.GetOrdersByShift(shiftID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for shift %d: %w", shiftID, err)
	}

	summary := &ShiftOrderSummary{
		ShiftID:       shiftID,
		CountsByState: make(map[models.OrderState]int),
	}
	var prepTotal, prepCount int64
	for _, order := range orders {
		summary.CountsByState[order.State]++
		switch order.State {
		case models.StatePaid, models.StateInQueue, models.StateInProgress,
			models.StateReady, models.StateOnHold:
			summary.OpenOrders++
		}
		if order.State == models.StatePickedUp {
			summary.RevenueCents += order.TotalCents
		}
		if order.PrepCompletedAt != nil {
			prepTotal += int64(order.PrepCompletedAt.Sub(order.CreatedAt).Seconds())
			prepCount++
		}
	}
	if prepCount > 0 {
		summary.AvgPrepSec = prepTotal / prepCount
	}
	return summary, nil
}
