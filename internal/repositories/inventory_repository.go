package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
)

// InventoryRepository defines the interface for the inventory adjustment ledger.
// The ledger is append-only; there are no update or delete methods on purpose.
type InventoryRepository interface {
	CreateAdjustment(executor SQLExecutor, adj *models.InventoryAdjustment) (int64, error)
	GetAdjustmentsByShift(shiftID int64) ([]models.InventoryAdjustment, error)
	GetAdjustmentsByTruckMenuItem(tmiID int64) ([]models.InventoryAdjustment, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) CreateAdjustment(executor SQLExecutor, adj *models.InventoryAdjustment) (int64, error) {
	query := `INSERT INTO inventory_adjustments
	          (shift_id, truck_menu_item_id, menu_item_id, delta, reason, staff_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		adj.ShiftID, adj.TruckMenuItemID, adj.MenuItemID, adj.Delta, adj.Reason,
		adj.StaffID, adj.CreatedAt,
	).Scan(&adj.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating inventory adjustment: %v", ErrDatabaseError, err)
	}
	return adj.ID, nil
}

func (r *inventoryRepository) GetAdjustmentsByShift(shiftID int64) ([]models.InventoryAdjustment, error) {
	query := `SELECT id, shift_id, truck_menu_item_id, menu_item_id, delta, reason, staff_id, created_at
	          FROM inventory_adjustments WHERE shift_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryAdjustments(query, shiftID)
}

func (r *inventoryRepository) GetAdjustmentsByTruckMenuItem(tmiID int64) ([]models.InventoryAdjustment, error) {
	query := `SELECT id, shift_id, truck_menu_item_id, menu_item_id, delta, reason, staff_id, created_at
	          FROM inventory_adjustments WHERE truck_menu_item_id = $1 ORDER BY created_at ASC, id ASC`
	return r.queryAdjustments(query, tmiID)
}

func (r *inventoryRepository) queryAdjustments(query string, arg interface{}) ([]models.InventoryAdjustment, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: getting inventory adjustments: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	adjustments := []models.InventoryAdjustment{}
	for rows.Next() {
		var adj models.InventoryAdjustment
		if err := rows.Scan(
			&adj.ID, &adj.ShiftID, &adj.TruckMenuItemID, &adj.MenuItemID,
			&adj.Delta, &adj.Reason, &adj.StaffID, &adj.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning inventory adjustment: %v", ErrDatabaseError, err)
		}
		adjustments = append(adjustments, adj)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating inventory adjustments: %v", ErrDatabaseError, err)
	}
	return adjustments, nil
}
