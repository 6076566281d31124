package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
)

// --- DTOs ---

// ItemSales aggregates per-item sales within a shift.
type ItemSales struct {
	Name         string `json:"name"`
	Qty          int    `json:"qty"`
	RevenueCents int64  `json:"revenue_cents"`
}

// ShiftDigest is the end-of-shift analytics rollup.
type ShiftDigest struct {
	ShiftID        int64                     `json:"shift_id"`
	OrdersTotal    int                       `json:"orders_total"`
	CountsByState  map[models.OrderState]int `json:"counts_by_state"`
	RevenueCents   int64                     `json:"revenue_cents"`
	TipsCents      int64                     `json:"tips_cents"`
	RefundedCents  int64                     `json:"refunded_cents"`
	AvgPrepSec     int64                     `json:"avg_prep_sec"`
	LoyaltyPoints  int                       `json:"loyalty_points_awarded"`
	TopItems       []ItemSales               `json:"top_items"`
	StockConsumed  int                       `json:"stock_consumed"`
	ManualAdjusted int                       `json:"manual_adjusted"`
}

// --- AnalyticsService Interface ---

type AnalyticsService interface {
	GetShiftDigest(shiftID int64) (*ShiftDigest, error)
	ExportShiftOrdersCSV(shiftID int64) ([]byte, error)
}

type analyticsService struct {
	orderRepo     repositories.OrderRepository
	inventoryRepo repositories.InventoryRepository
}

// NewAnalyticsService creates a new instance of AnalyticsService.
func NewAnalyticsService(or repositories.OrderRepository, ir repositories.InventoryRepository) AnalyticsService {
	return &analyticsService{orderRepo: or, inventoryRepo: ir}
}

func (s *analyticsService) GetShiftDigest(shiftID int64) (*ShiftDigest, error) {
	orders, err := s.orderRepo.GetOrdersByShift(shiftID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for shift %d: %w", shiftID, err)
	}

	digest := &ShiftDigest{
		ShiftID:       shiftID,
		OrdersTotal:   len(orders),
		CountsByState: make(map[models.OrderState]int),
		TopItems:      []ItemSales{},
	}

	itemTotals := make(map[string]*ItemSales)
	var prepTotal, prepCount int64
	for i := range orders {
		order := &orders[i]
		digest.CountsByState[order.State]++
		digest.LoyaltyPoints += order.LoyaltyPointsAwarded

		switch order.State {
		case models.StatePickedUp:
			digest.RevenueCents += order.TotalCents
			digest.TipsCents += order.TipCents
		case models.StateRefunded:
			digest.RefundedCents += order.TotalCents
		}
		if order.PrepCompletedAt != nil {
			prepTotal += int64(order.PrepCompletedAt.Sub(order.CreatedAt).Seconds())
			prepCount++
		}
		if order.State.Terminal() && order.State != models.StatePickedUp {
			continue
		}

		items, ierr := s.orderRepo.GetOrderItems(nil, order.ID)
		if ierr != nil {
			return nil, fmt.Errorf("failed to get items for order %d: %w", order.ID, ierr)
		}
		for _, item := range items {
			sales, ok := itemTotals[item.Name]
			if !ok {
				sales = &ItemSales{Name: item.Name}
				itemTotals[item.Name] = sales
			}
			sales.Qty += item.Qty
			sales.RevenueCents += item.PriceCents * int64(item.Qty)
		}
	}
	if prepCount > 0 {
		digest.AvgPrepSec = prepTotal / prepCount
	}

	for _, sales := range itemTotals {
		digest.TopItems = append(digest.TopItems, *sales)
	}
	// Highest sellers first.
	sort.Slice(digest.TopItems, func(i, j int) bool {
		return digest.TopItems[i].Qty > digest.TopItems[j].Qty
	})
	if len(digest.TopItems) > 10 {
		digest.TopItems = digest.TopItems[:10]
	}

	adjustments, err := s.inventoryRepo.GetAdjustmentsByShift(shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory ledger for shift %d: %w", shiftID, err)
	}
	for _, adj := range adjustments {
		switch adj.Reason {
		case models.AdjustmentReasonPayment:
			digest.StockConsumed -= adj.Delta
		case models.AdjustmentReasonManual:
			digest.ManualAdjusted++
		}
	}
	return digest, nil
}

// ExportShiftOrdersCSV renders the shift's order book as CSV for
// spreadsheet-based bookkeeping.
func (s *analyticsService) ExportShiftOrdersCSV(shiftID int64) ([]byte, error) {
	orders, err := s.orderRepo.GetOrdersByShift(shiftID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders for shift %d: %w", shiftID, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{
		"order_id", "state", "created_at", "customer_name",
		"subtotal_cents", "tax_cents", "tip_cents", "total_cents", "loyalty_points",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, order := range orders {
		name := ""
		if order.CustomerName != nil {
			name = *order.CustomerName
		}
		record := []string{
			strconv.FormatInt(order.ID, 10),
			string(order.State),
			order.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			name,
			strconv.FormatInt(order.SubtotalCents, 10),
			strconv.FormatInt(order.TaxCents, 10),
			strconv.FormatInt(order.TipCents, 10),
			strconv.FormatInt(order.TotalCents, 10),
			strconv.Itoa(order.LoyaltyPointsAwarded),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
