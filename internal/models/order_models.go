package models

import "time"

// OrderState is the closed enumeration of order lifecycle states.
// Transitions between states are owned by the order state machine in
// the services layer; nothing else assigns to Order.State.
type OrderState string

const (
	StateNew        OrderState = "NEW"
	StatePaid       OrderState = "PAID"
	StateInQueue    OrderState = "IN_QUEUE"
	StateInProgress OrderState = "IN_PROGRESS"
	StateReady      OrderState = "READY"
	StateOnHold     OrderState = "ON_HOLD"
	StatePickedUp   OrderState = "PICKED_UP"
	StateCanceled   OrderState = "CANCELED"
	StateRefunded   OrderState = "REFUNDED"
)

// Valid reports whether s is a member of the enumeration.
func (s OrderState) Valid() bool {
	switch s {
	case StateNew, StatePaid, StateInQueue, StateInProgress,
		StateReady, StateOnHold, StatePickedUp, StateCanceled, StateRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderState) Terminal() bool {
	switch s {
	case StatePickedUp, StateCanceled, StateRefunded:
		return true
	}
	return false
}

// Order is a purchase transaction against a shift. Monetary fields are
// integer minor-currency units (cents).
type Order struct {
	ID                   int64       `json:"id" db:"id"`
	ShiftID              int64       `json:"shift_id" db:"shift_id"`
	CustomerName         *string     `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone        *string     `json:"customer_phone,omitempty" db:"customer_phone"`
	CustomerEmail        *string     `json:"customer_email,omitempty" db:"customer_email"`
	LoyaltyID            *string     `json:"loyalty_id,omitempty" db:"loyalty_id"`
	State                OrderState  `json:"state" db:"state"`
	PreviousState        *OrderState `json:"previous_state,omitempty" db:"previous_state"`
	PickupETA            *time.Time  `json:"pickup_eta,omitempty" db:"pickup_eta"`
	SubtotalCents        int64       `json:"subtotal_cents" db:"subtotal_cents"`
	TaxCents             int64       `json:"tax_cents" db:"tax_cents"`
	TipCents             int64       `json:"tip_cents" db:"tip_cents"`
	TotalCents           int64       `json:"total_cents" db:"total_cents"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	PrepCompletedAt      *time.Time  `json:"prep_completed_at,omitempty" db:"prep_completed_at"`
	OnHoldUntil          *time.Time  `json:"on_hold_until,omitempty" db:"on_hold_until"`
	HoldReason           *string     `json:"hold_reason,omitempty" db:"hold_reason"`
	CancellationReason   *string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CanceledAt           *time.Time  `json:"canceled_at,omitempty" db:"canceled_at"`
	RefundReason         *string     `json:"refund_reason,omitempty" db:"refund_reason"`
	RefundedAt           *time.Time  `json:"refunded_at,omitempty" db:"refunded_at"`
	PaymentReference     *string     `json:"payment_reference,omitempty" db:"payment_reference"`
	LastStateChangeAt    time.Time   `json:"last_state_change_at" db:"last_state_change_at"`
	LoyaltyPointsAwarded int         `json:"loyalty_points_awarded" db:"loyalty_points_awarded"`
	AutoReconciledAt     *time.Time  `json:"auto_reconciled_at,omitempty" db:"auto_reconciled_at"`

	Items []OrderItem `json:"items,omitempty"`
}

// OrderItem is one order line; unit price is captured at order time and
// never recomputed from the menu afterwards.
type OrderItem struct {
	ID              int64  `json:"id" db:"id"`
	OrderID         int64  `json:"order_id" db:"order_id"`
	MenuItemID      *int64 `json:"menu_item_id,omitempty" db:"menu_item_id"`
	TruckMenuItemID *int64 `json:"truck_menu_item_id,omitempty" db:"truck_menu_item_id"`
	Name            string `json:"name" db:"name"`
	Qty             int    `json:"qty" db:"qty"`
	PriceCents      int64  `json:"price_cents" db:"price_cents"`
	ModifiersJSON   string `json:"-" db:"modifiers_json"`
}
