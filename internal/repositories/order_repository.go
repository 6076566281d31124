package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"

	"github.com/lib/pq"
)

// OrderRepository defines the interface for order-related database operations.
type OrderRepository interface {
	CreateOrder(executor SQLExecutor, order *models.Order) (int64, error)
	CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error)
	GetOrderByID(executor SQLExecutor, orderID int64) (*models.Order, error)
	GetOrderForUpdate(executor SQLExecutor, orderID int64) (*models.Order, error)
	GetOrderItems(executor SQLExecutor, orderID int64) ([]models.OrderItem, error)
	UpdateOrderLifecycle(executor SQLExecutor, order *models.Order) error
	GetOrdersByShift(shiftID int64, states []models.OrderState) ([]models.Order, error)
	AdvanceReadyToPickedUp(executor SQLExecutor, shiftID int64, orderIDs []int64, now time.Time) (int64, error)
	ReconcilePaidToQueue(executor SQLExecutor, shiftID int64, now time.Time) (int64, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, shift_id, customer_name, customer_phone, customer_email, loyalty_id,
	state, previous_state, pickup_eta, subtotal_cents, tax_cents, tip_cents, total_cents,
	created_at, prep_completed_at, on_hold_until, hold_reason, cancellation_reason, canceled_at,
	refund_reason, refunded_at, payment_reference, last_state_change_at, loyalty_points_awarded,
	auto_reconciled_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	o := &models.Order{}
	var previousState sql.NullString
	if err := row.Scan(
		&o.ID, &o.ShiftID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.LoyaltyID,
		&o.State, &previousState, &o.PickupETA, &o.SubtotalCents, &o.TaxCents, &o.TipCents, &o.TotalCents,
		&o.CreatedAt, &o.PrepCompletedAt, &o.OnHoldUntil, &o.HoldReason, &o.CancellationReason, &o.CanceledAt,
		&o.RefundReason, &o.RefundedAt, &o.PaymentReference, &o.LastStateChangeAt, &o.LoyaltyPointsAwarded,
		&o.AutoReconciledAt,
	); err != nil {
		return nil, err
	}
	if previousState.Valid {
		prev := models.OrderState(previousState.String)
		o.PreviousState = &prev
	}
	return o, nil
}

func (r *orderRepository) CreateOrder(executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders
	          (shift_id, customer_name, customer_phone, customer_email, loyalty_id, state,
	           subtotal_cents, tax_cents, tip_cents, total_cents, created_at, last_state_change_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING id`
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.LastStateChangeAt.IsZero() {
		order.LastStateChangeAt = order.CreatedAt
	}
	err := executor.QueryRow(query,
		order.ShiftID, order.CustomerName, order.CustomerPhone, order.CustomerEmail, order.LoyaltyID,
		string(order.State), order.SubtotalCents, order.TaxCents, order.TipCents, order.TotalCents,
		order.CreatedAt, order.LastStateChangeAt,
	).Scan(&order.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: shift %d does not exist", ErrNotFound, order.ShiftID)
		}
		return 0, fmt.Errorf("%w: creating order: %v", ErrDatabaseError, err)
	}
	return order.ID, nil
}

func (r *orderRepository) CreateOrderItem(executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	          (order_id, menu_item_id, truck_menu_item_id, name, qty, price_cents, modifiers_json)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	err := executor.QueryRow(query,
		item.OrderID, item.MenuItemID, item.TruckMenuItemID, item.Name, item.Qty,
		item.PriceCents, item.ModifiersJSON,
	).Scan(&item.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating order item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

func (r *orderRepository) GetOrderByID(executor SQLExecutor, orderID int64) (*models.Order, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(executor.QueryRow(query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting order by ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

// GetOrderForUpdate locks the order row for the duration of the surrounding
// transaction, serializing concurrent lifecycle mutations of the same order.
func (r *orderRepository) GetOrderForUpdate(executor SQLExecutor, orderID int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	order, err := scanOrder(executor.QueryRow(query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking order ID %d: %v", ErrDatabaseError, orderID, err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderItems(executor SQLExecutor, orderID int64) ([]models.OrderItem, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT id, order_id, menu_item_id, truck_menu_item_id, name, qty, price_cents, modifiers_json
	          FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := executor.Query(query, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting order items for order %d: %v", ErrDatabaseError, orderID, err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.MenuItemID, &item.TruckMenuItemID,
			&item.Name, &item.Qty, &item.PriceCents, &item.ModifiersJSON,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning order item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating order items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

// UpdateOrderLifecycle persists the lifecycle fields the state machine mutates.
// Identity, shift scoping and order lines are immutable after creation.
func (r *orderRepository) UpdateOrderLifecycle(executor SQLExecutor, order *models.Order) error {
	query := `UPDATE orders SET
	            state = $1, previous_state = $2, prep_completed_at = $3, on_hold_until = $4,
	            hold_reason = $5, cancellation_reason = $6, canceled_at = $7, refund_reason = $8,
	            refunded_at = $9, payment_reference = $10, last_state_change_at = $11,
	            loyalty_points_awarded = $12, auto_reconciled_at = $13, total_cents = $14
	          WHERE id = $15`
	var previousState sql.NullString
	if order.PreviousState != nil {
		previousState = sql.NullString{String: string(*order.PreviousState), Valid: true}
	}
	result, err := executor.Exec(query,
		string(order.State), previousState, order.PrepCompletedAt, order.OnHoldUntil,
		order.HoldReason, order.CancellationReason, order.CanceledAt, order.RefundReason,
		order.RefundedAt, order.PaymentReference, order.LastStateChangeAt,
		order.LoyaltyPointsAwarded, order.AutoReconciledAt, order.TotalCents,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating order ID %d: %v", ErrDatabaseError, order.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetOrdersByShift(shiftID int64, states []models.OrderState) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE shift_id = $1`
	args := []interface{}{shiftID}
	if len(states) > 0 {
		stateStrings := make([]string, 0, len(states))
		for _, s := range states {
			stateStrings = append(stateStrings, string(s))
		}
		query += ` AND state = ANY($2)`
		args = append(args, pq.Array(stateStrings))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting orders for shift %d: %v", ErrDatabaseError, shiftID, err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, *order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating orders: %v", ErrDatabaseError, err)
	}
	return orders, nil
}

// AdvanceReadyToPickedUp bulk-transitions the referenced READY orders of a
// shift to PICKED_UP. Orders not currently READY are silently skipped.
func (r *orderRepository) AdvanceReadyToPickedUp(executor SQLExecutor, shiftID int64, orderIDs []int64, now time.Time) (int64, error) {
	query := `UPDATE orders
	          SET state = $1, previous_state = NULL, last_state_change_at = $2
	          WHERE shift_id = $3 AND id = ANY($4) AND state = $5`
	result, err := executor.Exec(query,
		string(models.StatePickedUp), now, shiftID, pq.Array(orderIDs), string(models.StateReady))
	if err != nil {
		return 0, fmt.Errorf("%w: bulk advancing ready orders for shift %d: %v", ErrDatabaseError, shiftID, err)
	}
	updated, _ := result.RowsAffected()
	return updated, nil
}

// ReconcilePaidToQueue moves every PAID order of a shift to IN_QUEUE,
// stamping auto_reconciled_at. Recovery path for stuck paid orders.
func (r *orderRepository) ReconcilePaidToQueue(executor SQLExecutor, shiftID int64, now time.Time) (int64, error) {
	query := `UPDATE orders
	          SET state = $1, previous_state = NULL, auto_reconciled_at = $2, last_state_change_at = $2
	          WHERE shift_id = $3 AND state = $4`
	result, err := executor.Exec(query,
		string(models.StateInQueue), now, shiftID, string(models.StatePaid))
	if err != nil {
		return 0, fmt.Errorf("%w: reconciling paid orders for shift %d: %v", ErrDatabaseError, shiftID, err)
	}
	updated, _ := result.RowsAffected()
	return updated, nil
}
