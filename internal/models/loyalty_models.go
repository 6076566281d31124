package models

import "time"

// LoyaltyLedger is one loyalty point award tied to a customer phone number.
type LoyaltyLedger struct {
	ID            int64     `json:"id" db:"id"`
	CustomerPhone string    `json:"customer_phone" db:"customer_phone"`
	Points        int       `json:"points" db:"points"`
	OrderID       *int64    `json:"order_id,omitempty" db:"order_id"`
	Note          string    `json:"note" db:"note"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
