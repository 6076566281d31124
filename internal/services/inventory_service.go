package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
)

// --- DTOs ---

// InventoryUpdateLine is one manual stock edit from the staff app. A nil
// field leaves the corresponding value untouched; ClearStock switches the
// item back to untracked.
type InventoryUpdateLine struct {
	TruckMenuItemID   int64 `json:"truck_menu_item_id" binding:"required"`
	StockCount        *int  `json:"stock_count"`
	ClearStock        bool  `json:"clear_stock"`
	OutOfStock        *bool `json:"out_of_stock"`
	LowStockThreshold *int  `json:"low_stock_threshold"`
}

// UpdateInventoryRequest is a batch of manual stock edits.
type UpdateInventoryRequest struct {
	Lines []InventoryUpdateLine `json:"lines" binding:"required,dive"`
}

// InventoryItemStatus is the staff view of one item's live stock state.
type InventoryItemStatus struct {
	Item     models.TruckMenuItem `json:"item"`
	LowStock bool                 `json:"low_stock"`
}

// --- InventoryService Interface ---

type InventoryService interface {
	UpdateInventory(shiftID int64, req UpdateInventoryRequest, staffID *int64) ([]models.TruckMenuItem, error)
	GetShiftInventory(shiftID int64) ([]InventoryItemStatus, error)
	GetShiftLedger(shiftID int64) ([]models.InventoryAdjustment, error)
}

type inventoryService struct {
	menuRepo      repositories.MenuRepository
	inventoryRepo repositories.InventoryRepository
	events        EventSink
	notifier      Notifier
	db            *sql.DB
}

// NewInventoryService creates a new instance of InventoryService.
func NewInventoryService(
	mr repositories.MenuRepository,
	ir repositories.InventoryRepository,
	events EventSink,
	notifier Notifier,
	db *sql.DB,
) InventoryService {
	return &inventoryService{
		menuRepo:      mr,
		inventoryRepo: ir,
		events:        events,
		notifier:      notifier,
		db:            db,
	}
}

// UpdateInventory applies a batch of manual stock edits atomically. Count
// changes are clamped to zero and every applied delta lands in the ledger.
func (s *inventoryService) UpdateInventory(shiftID int64, req UpdateInventoryRequest, staffID *int64) ([]models.TruckMenuItem, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: no inventory lines to update", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	updated := make([]models.TruckMenuItem, 0, len(req.Lines))
	var alerts []lowStockAlert

	for _, line := range req.Lines {
		tmi, err := s.menuRepo.GetTruckMenuItemByID(tx, line.TruckMenuItemID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: truck menu item %d", ErrNotFound, line.TruckMenuItemID)
			}
			return nil, fmt.Errorf("failed to fetch truck menu item %d: %w", line.TruckMenuItemID, err)
		}
		if tmi.ShiftID != shiftID {
			return nil, fmt.Errorf("%w: item %d belongs to another shift", ErrValidation, tmi.ID)
		}

		wasLow := tmi.LowStock()

		if line.ClearStock {
			tmi.StockCount = nil
			tmi.OutOfStock = false
			tmi.LastStockUpdateAt = &now
		} else if line.StockCount != nil {
			newCount := *line.StockCount
			if newCount < 0 {
				newCount = 0
			}
			delta := newCount
			if tmi.StockCount != nil {
				delta = newCount - *tmi.StockCount
			}
			if delta != 0 {
				adj := models.InventoryAdjustment{
					ShiftID:         shiftID,
					TruckMenuItemID: &tmi.ID,
					MenuItemID:      tmi.MenuItemID,
					Delta:           delta,
					Reason:          models.AdjustmentReasonManual,
					StaffID:         staffID,
					CreatedAt:       now,
				}
				if _, aerr := s.inventoryRepo.CreateAdjustment(tx, &adj); aerr != nil {
					return nil, fmt.Errorf("failed to record inventory adjustment: %w", aerr)
				}
			}
			tmi.StockCount = &newCount
			tmi.OutOfStock = newCount == 0
			tmi.LastStockUpdateAt = &now
		}

		if line.OutOfStock != nil {
			tmi.OutOfStock = *line.OutOfStock
		}
		if line.LowStockThreshold != nil && *line.LowStockThreshold >= 0 {
			tmi.LowStockThreshold = *line.LowStockThreshold
		}

		if err := s.menuRepo.UpdateTruckMenuItem(tx, tmi); err != nil {
			return nil, fmt.Errorf("failed to persist truck menu item %d: %w", tmi.ID, err)
		}
		updated = append(updated, *tmi)

		// Alert on the crossing, not on every edit of an already-low item.
		if !wasLow && tmi.LowStock() {
			alerts = append(alerts, lowStockAlert{
				tmiID:      tmi.ID,
				name:       tmi.EffectiveName(nil),
				stockCount: tmi.StockCount,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit inventory transaction: %w", err)
	}

	for _, alert := range alerts {
		event := map[string]interface{}{
			"event":              "low_stock",
			"truck_menu_item_id": alert.tmiID,
			"item_name":          alert.name,
		}
		if alert.stockCount != nil {
			event["stock_count"] = *alert.stockCount
		}
		s.events.BroadcastStaff(shiftID, event)
		s.notifier.NotifyLowStock(shiftID, alert.name, alert.stockCount)
	}
	return updated, nil
}

func (s *inventoryService) GetShiftInventory(shiftID int64) ([]InventoryItemStatus, error) {
	items, err := s.menuRepo.ListTruckMenuItems(shiftID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift inventory: %w", err)
	}
	statuses := make([]InventoryItemStatus, 0, len(items))
	for i := range items {
		statuses = append(statuses, InventoryItemStatus{
			Item:     items[i],
			LowStock: items[i].LowStock(),
		})
	}
	return statuses, nil
}

func (s *inventoryService) GetShiftLedger(shiftID int64) ([]models.InventoryAdjustment, error) {
	entries, err := s.inventoryRepo.GetAdjustmentsByShift(shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory ledger: %w", err)
	}
	return entries, nil
}
