package models

import "time"

// Adjustment reason codes recorded in the inventory ledger.
const (
	AdjustmentReasonPayment = "payment_notification"
	AdjustmentReasonManual  = "manual_adjustment"
	AdjustmentReasonSpecial = "special_update"
)

// InventoryAdjustment is one immutable ledger entry recording a stock delta.
// Entries are append-only: the sum of deltas for a truck menu item, applied
// in creation order, equals its current stock minus its initial value.
type InventoryAdjustment struct {
	ID              int64     `json:"id" db:"id"`
	ShiftID         int64     `json:"shift_id" db:"shift_id"`
	TruckMenuItemID *int64    `json:"truck_menu_item_id,omitempty" db:"truck_menu_item_id"`
	MenuItemID      *int64    `json:"menu_item_id,omitempty" db:"menu_item_id"`
	Delta           int       `json:"delta" db:"delta"`
	Reason          string    `json:"reason" db:"reason"`
	StaffID         *int64    `json:"staff_id,omitempty" db:"staff_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
