package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
	"fusionx_backend/pkg/utils"
)

// --- DTOs ---

// ShiftMenuEntry is the customer-facing projection of one sellable item.
type ShiftMenuEntry struct {
	TruckMenuItemID int64   `json:"truck_menu_item_id"`
	MenuItemID      *int64  `json:"menu_item_id,omitempty"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	PriceCents      int64   `json:"price_cents"`
	CategoryID      *int64  `json:"category_id,omitempty"`
	IsSpecial       bool    `json:"is_special"`
	OutOfStock      bool    `json:"out_of_stock"`
	PrepTimeSec     int     `json:"prep_time_sec"`
	DisplayOrder    int     `json:"display_order"`
}

// ShiftMenu is the full customer menu for one shift.
type ShiftMenu struct {
	ShiftID    int64                 `json:"shift_id"`
	Categories []models.MenuCategory `json:"categories"`
	Entries    []ShiftMenuEntry      `json:"entries"`
}

// SpecialRequest creates or updates a shift special: a standalone sellable
// item with no backing catalog entry.
type SpecialRequest struct {
	Name              string     `json:"name" binding:"required"`
	Description       string     `json:"description"`
	PriceCents        int64      `json:"price_cents" binding:"required"`
	StockCount        *int       `json:"stock_count"`
	LowStockThreshold *int       `json:"low_stock_threshold"`
	PrepTimeSec       *int       `json:"prep_time_sec"`
	CategoryID        *int64     `json:"category_id"`
	AvailableStart    *time.Time `json:"available_start"`
	AvailableEnd      *time.Time `json:"available_end"`
	DisplayOrder      int        `json:"display_order"`
	Visible           *bool      `json:"visible"`
}

// --- MenuService Interface ---

type MenuService interface {
	GetShiftMenu(shiftID int64) (*ShiftMenu, error)

	CreateCategory(category *models.MenuCategory) error
	GetCategories() ([]models.MenuCategory, error)
	UpdateCategory(category *models.MenuCategory) error
	DeleteCategory(id int64) error

	CreateItem(item *models.MenuItem) error
	GetItems(activeOnly bool) ([]models.MenuItem, error)
	GetItemByID(id int64) (*models.MenuItem, error)
	UpdateItem(item *models.MenuItem) error
	DeleteItem(id int64) error

	CreateSpecial(shiftID int64, req SpecialRequest, staffID *int64) (*models.TruckMenuItem, error)
	UpdateSpecial(shiftID, specialID int64, req SpecialRequest, staffID *int64) (*models.TruckMenuItem, error)
	DeleteSpecial(shiftID, specialID int64) error
	ListSpecials(shiftID int64) ([]models.TruckMenuItem, error)
}

type menuService struct {
	menuRepo      repositories.MenuRepository
	inventoryRepo repositories.InventoryRepository
	events        EventSink
	db            *sql.DB
}

// NewMenuService creates a new instance of MenuService.
func NewMenuService(
	mr repositories.MenuRepository,
	ir repositories.InventoryRepository,
	events EventSink,
	db *sql.DB,
) MenuService {
	return &menuService{
		menuRepo:      mr,
		inventoryRepo: ir,
		events:        events,
		db:            db,
	}
}

// GetShiftMenu builds the customer menu: visible items only, with names and
// prices resolved against the catalog and time windows applied.
func (s *menuService) GetShiftMenu(shiftID int64) (*ShiftMenu, error) {
	items, err := s.menuRepo.ListTruckMenuItems(shiftID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift menu items: %w", err)
	}
	categories, err := s.menuRepo.GetCategories()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	now := time.Now()
	menu := &ShiftMenu{ShiftID: shiftID, Categories: categories, Entries: []ShiftMenuEntry{}}
	for i := range items {
		tmi := &items[i]
		if !tmi.Visible {
			continue
		}
		if tmi.AvailableStart != nil && now.Before(*tmi.AvailableStart) {
			continue
		}
		if tmi.AvailableEnd != nil && now.After(*tmi.AvailableEnd) {
			continue
		}

		var base *models.MenuItem
		if tmi.MenuItemID != nil {
			base, err = s.menuRepo.GetItemByID(nil, *tmi.MenuItemID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("failed to fetch base item %d: %w", *tmi.MenuItemID, err)
			}
			if !base.IsActive {
				continue
			}
		}
		price, ok := tmi.EffectivePriceCents(base)
		if !ok {
			continue
		}

		description := ""
		if tmi.DisplayDescription != nil {
			description = *tmi.DisplayDescription
		} else if base != nil {
			description = base.Description
		}
		categoryID := tmi.CategoryID
		if categoryID == nil && base != nil {
			categoryID = base.CategoryID
		}
		menu.Entries = append(menu.Entries, ShiftMenuEntry{
			TruckMenuItemID: tmi.ID,
			MenuItemID:      tmi.MenuItemID,
			Name:            tmi.EffectiveName(base),
			Description:     description,
			PriceCents:      price,
			CategoryID:      categoryID,
			IsSpecial:       tmi.IsSpecial,
			OutOfStock:      tmi.OutOfStock,
			PrepTimeSec:     tmi.PrepTimeSec,
			DisplayOrder:    tmi.DisplayOrder,
		})
	}
	return menu, nil
}

// --- Catalog methods ---

func (s *menuService) CreateCategory(category *models.MenuCategory) error {
	if _, err := s.menuRepo.CreateCategory(s.db, category); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (s *menuService) GetCategories() ([]models.MenuCategory, error) {
	categories, err := s.menuRepo.GetCategories()
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *menuService) UpdateCategory(category *models.MenuCategory) error {
	if err := s.menuRepo.UpdateCategory(s.db, category); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (s *menuService) DeleteCategory(id int64) error {
	if err := s.menuRepo.DeleteCategory(s.db, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (s *menuService) CreateItem(item *models.MenuItem) error {
	if item.BasePriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if _, err := s.menuRepo.CreateItem(s.db, item); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: category does not exist", ErrValidation)
		}
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

func (s *menuService) GetItems(activeOnly bool) ([]models.MenuItem, error) {
	items, err := s.menuRepo.GetItems(activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get menu items: %w", err)
	}
	return items, nil
}

func (s *menuService) GetItemByID(id int64) (*models.MenuItem, error) {
	item, err := s.menuRepo.GetItemByID(nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get menu item %d: %w", id, err)
	}
	return item, nil
}

func (s *menuService) UpdateItem(item *models.MenuItem) error {
	if item.BasePriceCents < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if err := s.menuRepo.UpdateItem(s.db, item); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	return nil
}

func (s *menuService) DeleteItem(id int64) error {
	if err := s.menuRepo.DeleteItem(s.db, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	return nil
}

// --- Specials ---

func (s *menuService) CreateSpecial(shiftID int64, req SpecialRequest, staffID *int64) (*models.TruckMenuItem, error) {
	if req.PriceCents <= 0 {
		return nil, fmt.Errorf("%w: special price must be positive", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}
	price := req.PriceCents
	name := req.Name
	tmi := &models.TruckMenuItem{
		ShiftID:            shiftID,
		Visible:            visible,
		PriceOverrideCents: &price,
		StockCount:         req.StockCount,
		DisplayName:        &name,
		CategoryID:         req.CategoryID,
		IsSpecial:          true,
		AvailableStart:     req.AvailableStart,
		AvailableEnd:       req.AvailableEnd,
		DisplayOrder:       req.DisplayOrder,
		LowStockThreshold:  2,
		PrepTimeSec:        300,
	}
	tmi.DisplayDescription = utils.NewNullString(req.Description)
	if req.LowStockThreshold != nil {
		tmi.LowStockThreshold = *req.LowStockThreshold
	}
	if req.PrepTimeSec != nil {
		tmi.PrepTimeSec = *req.PrepTimeSec
	}
	if req.StockCount != nil {
		if *req.StockCount < 0 {
			zero := 0
			tmi.StockCount = &zero
		}
		tmi.OutOfStock = *tmi.StockCount == 0
		tmi.LastStockUpdateAt = &now
	}

	if _, err := s.menuRepo.CreateTruckMenuItem(tx, tmi); err != nil {
		return nil, fmt.Errorf("failed to create special: %w", err)
	}

	if tmi.StockCount != nil && *tmi.StockCount != 0 {
		adj := models.InventoryAdjustment{
			ShiftID:         shiftID,
			TruckMenuItemID: &tmi.ID,
			Delta:           *tmi.StockCount,
			Reason:          models.AdjustmentReasonSpecial,
			StaffID:         staffID,
			CreatedAt:       now,
		}
		if _, err := s.inventoryRepo.CreateAdjustment(tx, &adj); err != nil {
			return nil, fmt.Errorf("failed to record special stock adjustment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit special transaction: %w", err)
	}

	s.events.Broadcast(shiftID, map[string]interface{}{
		"event":              "config_updated",
		"what":               "special_created",
		"truck_menu_item_id": tmi.ID,
	})
	return tmi, nil
}

func (s *menuService) UpdateSpecial(shiftID, specialID int64, req SpecialRequest, staffID *int64) (*models.TruckMenuItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	tmi, err := s.menuRepo.GetTruckMenuItemByID(tx, specialID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch special %d: %w", specialID, err)
	}
	if tmi.ShiftID != shiftID || !tmi.IsSpecial {
		return nil, ErrNotFound
	}

	now := time.Now()
	if req.Name != "" {
		name := req.Name
		tmi.DisplayName = &name
	}
	if req.Description != "" {
		desc := req.Description
		tmi.DisplayDescription = &desc
	}
	if req.PriceCents > 0 {
		price := req.PriceCents
		tmi.PriceOverrideCents = &price
	}
	if req.Visible != nil {
		tmi.Visible = *req.Visible
	}
	if req.CategoryID != nil {
		tmi.CategoryID = req.CategoryID
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold >= 0 {
		tmi.LowStockThreshold = *req.LowStockThreshold
	}
	if req.PrepTimeSec != nil && *req.PrepTimeSec > 0 {
		tmi.PrepTimeSec = *req.PrepTimeSec
	}
	tmi.AvailableStart = req.AvailableStart
	tmi.AvailableEnd = req.AvailableEnd
	tmi.DisplayOrder = req.DisplayOrder

	if req.StockCount != nil {
		newCount := *req.StockCount
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
				Delta:           delta,
				Reason:          models.AdjustmentReasonSpecial,
				StaffID:         staffID,
				CreatedAt:       now,
			}
			if _, err := s.inventoryRepo.CreateAdjustment(tx, &adj); err != nil {
				return nil, fmt.Errorf("failed to record special stock adjustment: %w", err)
			}
		}
		tmi.StockCount = &newCount
		tmi.OutOfStock = newCount == 0
		tmi.LastStockUpdateAt = &now
	}

	if err := s.menuRepo.UpdateTruckMenuItem(tx, tmi); err != nil {
		return nil, fmt.Errorf("failed to persist special %d: %w", specialID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit special transaction: %w", err)
	}

	s.events.Broadcast(shiftID, map[string]interface{}{
		"event":              "config_updated",
		"what":               "special_updated",
		"truck_menu_item_id": tmi.ID,
	})
	return tmi, nil
}

func (s *menuService) DeleteSpecial(shiftID, specialID int64) error {
	tmi, err := s.menuRepo.GetTruckMenuItemByID(nil, specialID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to fetch special %d: %w", specialID, err)
	}
	if tmi.ShiftID != shiftID || !tmi.IsSpecial {
		return ErrNotFound
	}
	if err := s.menuRepo.DeleteTruckMenuItem(s.db, specialID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete special %d: %w", specialID, err)
	}
	s.events.Broadcast(shiftID, map[string]interface{}{
		"event":              "config_updated",
		"what":               "special_deleted",
		"truck_menu_item_id": specialID,
	})
	return nil
}

func (s *menuService) ListSpecials(shiftID int64) ([]models.TruckMenuItem, error) {
	specials, err := s.menuRepo.ListTruckMenuItems(shiftID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list specials: %w", err)
	}
	return specials, nil
}
