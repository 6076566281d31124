package models

import "time"

// MenuCategory groups catalog menu items for display.
type MenuCategory struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name" binding:"required"`
	SortOrder int    `json:"sort_order" db:"sort_order"`
}

// MenuItem is a catalog item shared across the fleet.
type MenuItem struct {
	ID             int64      `json:"id" db:"id"`
	Name           string     `json:"name" db:"name" binding:"required"`
	Description    string     `json:"description" db:"description"`
	BasePriceCents int64      `json:"base_price_cents" db:"base_price_cents"`
	CategoryID     *int64     `json:"category_id,omitempty" db:"category_id"`
	SortOrder      int        `json:"sort_order" db:"sort_order"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	AvailableStart *time.Time `json:"available_start,omitempty" db:"available_start"`
	AvailableEnd   *time.Time `json:"available_end,omitempty" db:"available_end"`
}

// TruckMenuItem is the sellable, shift-scoped projection of a catalog item,
// or a standalone special with no backing catalog item. It carries the live
// price, stock and visibility state for one shift.
type TruckMenuItem struct {
	ID                 int64      `json:"id" db:"id"`
	ShiftID            int64      `json:"shift_id" db:"shift_id"`
	MenuItemID         *int64     `json:"menu_item_id,omitempty" db:"menu_item_id"`
	Visible            bool       `json:"visible" db:"visible"`
	PriceOverrideCents *int64     `json:"price_override_cents,omitempty" db:"price_override_cents"`
	StockCount         *int       `json:"stock_count,omitempty" db:"stock_count"` // nil = unlimited
	OutOfStock         bool       `json:"out_of_stock" db:"out_of_stock"`
	LowStockThreshold  int        `json:"low_stock_threshold" db:"low_stock_threshold"`
	PrepTimeSec        int        `json:"prep_time_sec" db:"prep_time_sec"`
	DisplayName        *string    `json:"display_name,omitempty" db:"display_name"`
	DisplayDescription *string    `json:"display_description,omitempty" db:"display_description"`
	CategoryID         *int64     `json:"category_id,omitempty" db:"category_id"`
	IsSpecial          bool       `json:"is_special" db:"is_special"`
	AvailableStart     *time.Time `json:"available_start,omitempty" db:"available_start"`
	AvailableEnd       *time.Time `json:"available_end,omitempty" db:"available_end"`
	DisplayOrder       int        `json:"display_order" db:"display_order"`
	LastStockUpdateAt  *time.Time `json:"last_stock_update_at,omitempty" db:"last_stock_update_at"`
}

// LowStock reports whether the item should raise a low-stock alert:
// flagged out of stock, or tracking a finite count at or below threshold.
func (t *TruckMenuItem) LowStock() bool {
	if t.OutOfStock {
		return true
	}
	return t.StockCount != nil && *t.StockCount <= t.LowStockThreshold
}

// EffectiveName resolves the display name, falling back to the base item.
func (t *TruckMenuItem) EffectiveName(base *MenuItem) string {
	if t.DisplayName != nil && *t.DisplayName != "" {
		return *t.DisplayName
	}
	if base != nil {
		return base.Name
	}
	return "Item"
}

// EffectivePriceCents resolves the live price, preferring the shift override.
func (t *TruckMenuItem) EffectivePriceCents(base *MenuItem) (int64, bool) {
	if t.PriceOverrideCents != nil {
		return *t.PriceOverrideCents, true
	}
	if base != nil {
		return base.BasePriceCents, true
	}
	return 0, false
}
