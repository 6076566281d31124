package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"

	"github.com/lib/pq"
)

// MenuRepository defines the interface for catalog and per-shift menu state.
type MenuRepository interface {
	// MenuCategory methods
	CreateCategory(executor SQLExecutor, category *models.MenuCategory) (int64, error)
	GetCategories() ([]models.MenuCategory, error)
	UpdateCategory(executor SQLExecutor, category *models.MenuCategory) error
	DeleteCategory(executor SQLExecutor, id int64) error

	// MenuItem methods
	CreateItem(executor SQLExecutor, item *models.MenuItem) (int64, error)
	GetItemByID(executor SQLExecutor, id int64) (*models.MenuItem, error)
	GetItems(activeOnly bool) ([]models.MenuItem, error)
	UpdateItem(executor SQLExecutor, item *models.MenuItem) error
	DeleteItem(executor SQLExecutor, id int64) error

	// TruckMenuItem methods
	CreateTruckMenuItem(executor SQLExecutor, tmi *models.TruckMenuItem) (int64, error)
	GetTruckMenuItemByID(executor SQLExecutor, id int64) (*models.TruckMenuItem, error)
	GetTruckMenuItemForShift(executor SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error)
	EnsureTruckMenuItem(executor SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error)
	ListTruckMenuItems(shiftID int64, specialsOnly bool) ([]models.TruckMenuItem, error)
	UpdateTruckMenuItem(executor SQLExecutor, tmi *models.TruckMenuItem) error
	DeleteTruckMenuItem(executor SQLExecutor, id int64) error

	// Atomic stock decrement; stamps last_stock_update_at.
	ReserveStock(executor SQLExecutor, tmiID int64, qty int, now time.Time) (newStock sql.NullInt64, tracked bool, err error)
}

type menuRepository struct {
	db *sql.DB
}

// NewMenuRepository creates a new instance of MenuRepository.
func NewMenuRepository(db *sql.DB) MenuRepository {
	return &menuRepository{db: db}
}

// --- MenuCategory methods ---

func (r *menuRepository) CreateCategory(executor SQLExecutor, category *models.MenuCategory) (int64, error) {
	query := `INSERT INTO menu_categories (name, sort_order) VALUES ($1, $2) RETURNING id`
	err := executor.QueryRow(query, category.Name, category.SortOrder).Scan(&category.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: menu category name '%s' already exists", ErrDuplicateKey, category.Name)
		}
		return 0, fmt.Errorf("%w: creating menu category: %v", ErrDatabaseError, err)
	}
	return category.ID, nil
}

func (r *menuRepository) GetCategories() ([]models.MenuCategory, error) {
	query := `SELECT id, name, sort_order FROM menu_categories ORDER BY sort_order, name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting menu categories: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	categories := []models.MenuCategory{}
	for rows.Next() {
		var category models.MenuCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.SortOrder); err != nil {
			return nil, fmt.Errorf("%w: scanning menu category: %v", ErrDatabaseError, err)
		}
		categories = append(categories, category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating menu categories: %v", ErrDatabaseError, err)
	}
	return categories, nil
}

func (r *menuRepository) UpdateCategory(executor SQLExecutor, category *models.MenuCategory) error {
	query := `UPDATE menu_categories SET name = $1, sort_order = $2 WHERE id = $3`
	result, err := executor.Exec(query, category.Name, category.SortOrder, category.ID)
	if err != nil {
		return fmt.Errorf("%w: updating menu category ID %d: %v", ErrDatabaseError, category.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *menuRepository) DeleteCategory(executor SQLExecutor, id int64) error {
	var count int
	checkQuery := `SELECT COUNT(*) FROM menu_items WHERE category_id = $1`
	if err := executor.QueryRow(checkQuery, id).Scan(&count); err != nil {
		return fmt.Errorf("%w: checking if category %d is in use: %v", ErrDatabaseError, id, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: category ID %d is in use by %d menu item(s)", ErrDatabaseError, id, count)
	}

	result, err := executor.Exec(`DELETE FROM menu_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting menu category ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- MenuItem methods ---

func (r *menuRepository) CreateItem(executor SQLExecutor, item *models.MenuItem) (int64, error) {
	query := `INSERT INTO menu_items
	          (name, description, base_price_cents, category_id, sort_order, is_active, available_start, available_end)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`
	err := executor.QueryRow(query,
		item.Name, item.Description, item.BasePriceCents, item.CategoryID,
		item.SortOrder, item.IsActive, item.AvailableStart, item.AvailableEnd,
	).Scan(&item.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: invalid category_id", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating menu item: %v", ErrDatabaseError, err)
	}
	return item.ID, nil
}

const menuItemColumns = `id, name, description, base_price_cents, category_id, sort_order,
	is_active, available_start, available_end`

func (r *menuRepository) GetItemByID(executor SQLExecutor, id int64) (*models.MenuItem, error) {
	if executor == nil {
		executor = r.db
	}
	item := &models.MenuItem{}
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&item.ID, &item.Name, &item.Description, &item.BasePriceCents, &item.CategoryID,
		&item.SortOrder, &item.IsActive, &item.AvailableStart, &item.AvailableEnd,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting menu item by ID %d: %v", ErrDatabaseError, id, err)
	}
	return item, nil
}

func (r *menuRepository) GetItems(activeOnly bool) ([]models.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting menu items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.BasePriceCents, &item.CategoryID,
			&item.SortOrder, &item.IsActive, &item.AvailableStart, &item.AvailableEnd,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning menu item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating menu items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *menuRepository) UpdateItem(executor SQLExecutor, item *models.MenuItem) error {
	query := `UPDATE menu_items SET
	            name = $1, description = $2, base_price_cents = $3, category_id = $4,
	            sort_order = $5, is_active = $6, available_start = $7, available_end = $8
	          WHERE id = $9`
	result, err := executor.Exec(query,
		item.Name, item.Description, item.BasePriceCents, item.CategoryID,
		item.SortOrder, item.IsActive, item.AvailableStart, item.AvailableEnd, item.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating menu item ID %d: %v", ErrDatabaseError, item.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *menuRepository) DeleteItem(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: menu item ID %d is referenced by historical orders", ErrDatabaseError, id)
		}
		return fmt.Errorf("%w: deleting menu item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- TruckMenuItem methods ---

const truckMenuItemColumns = `id, shift_id, menu_item_id, visible, price_override_cents, stock_count,
	out_of_stock, low_stock_threshold, prep_time_sec, display_name, display_description, category_id,
	is_special, available_start, available_end, display_order, last_stock_update_at`

func scanTruckMenuItem(row interface{ Scan(...interface{}) error }) (*models.TruckMenuItem, error) {
	tmi := &models.TruckMenuItem{}
	var stockCount sql.NullInt64
	if err := row.Scan(
		&tmi.ID, &tmi.ShiftID, &tmi.MenuItemID, &tmi.Visible, &tmi.PriceOverrideCents, &stockCount,
		&tmi.OutOfStock, &tmi.LowStockThreshold, &tmi.PrepTimeSec, &tmi.DisplayName, &tmi.DisplayDescription,
		&tmi.CategoryID, &tmi.IsSpecial, &tmi.AvailableStart, &tmi.AvailableEnd, &tmi.DisplayOrder,
		&tmi.LastStockUpdateAt,
	); err != nil {
		return nil, err
	}
	if stockCount.Valid {
		val := int(stockCount.Int64)
		tmi.StockCount = &val
	}
	return tmi, nil
}

func (r *menuRepository) CreateTruckMenuItem(executor SQLExecutor, tmi *models.TruckMenuItem) (int64, error) {
	query := `INSERT INTO truck_menu_items
	          (shift_id, menu_item_id, visible, price_override_cents, stock_count, out_of_stock,
	           low_stock_threshold, prep_time_sec, display_name, display_description, category_id,
	           is_special, available_start, available_end, display_order)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING id`
	var stockCount sql.NullInt64
	if tmi.StockCount != nil {
		stockCount = sql.NullInt64{Int64: int64(*tmi.StockCount), Valid: true}
	}
	err := executor.QueryRow(query,
		tmi.ShiftID, tmi.MenuItemID, tmi.Visible, tmi.PriceOverrideCents, stockCount, tmi.OutOfStock,
		tmi.LowStockThreshold, tmi.PrepTimeSec, tmi.DisplayName, tmi.DisplayDescription, tmi.CategoryID,
		tmi.IsSpecial, tmi.AvailableStart, tmi.AvailableEnd, tmi.DisplayOrder,
	).Scan(&tmi.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: shift or menu item does not exist", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating truck menu item: %v", ErrDatabaseError, err)
	}
	return tmi.ID, nil
}

func (r *menuRepository) GetTruckMenuItemByID(executor SQLExecutor, id int64) (*models.TruckMenuItem, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + truckMenuItemColumns + ` FROM truck_menu_items WHERE id = $1`
	tmi, err := scanTruckMenuItem(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting truck menu item by ID %d: %v", ErrDatabaseError, id, err)
	}
	return tmi, nil
}

func (r *menuRepository) GetTruckMenuItemForShift(executor SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + truckMenuItemColumns + ` FROM truck_menu_items
	          WHERE shift_id = $1 AND menu_item_id = $2 AND is_special = FALSE`
	tmi, err := scanTruckMenuItem(executor.QueryRow(query, shiftID, menuItemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting truck menu item for shift %d, item %d: %v", ErrDatabaseError, shiftID, menuItemID, err)
	}
	return tmi, nil
}

// EnsureTruckMenuItem returns the shift-scoped row for a catalog item,
// creating it lazily on first reference within the shift.
func (r *menuRepository) EnsureTruckMenuItem(executor SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error) {
	if executor == nil {
		executor = r.db
	}
	tmi, err := r.GetTruckMenuItemForShift(executor, shiftID, menuItemID)
	if err == nil {
		return tmi, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	fresh := &models.TruckMenuItem{
		ShiftID:           shiftID,
		MenuItemID:        &menuItemID,
		Visible:           true,
		LowStockThreshold: 2,
		PrepTimeSec:       300,
	}
	if _, err := r.CreateTruckMenuItem(executor, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *menuRepository) ListTruckMenuItems(shiftID int64, specialsOnly bool) ([]models.TruckMenuItem, error) {
	query := `SELECT ` + truckMenuItemColumns + ` FROM truck_menu_items WHERE shift_id = $1`
	if specialsOnly {
		query += ` AND is_special = TRUE`
	}
	query += ` ORDER BY display_order ASC, id ASC`

	rows, err := r.db.Query(query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing truck menu items for shift %d: %v", ErrDatabaseError, shiftID, err)
	}
	defer rows.Close()

	items := []models.TruckMenuItem{}
	for rows.Next() {
		tmi, err := scanTruckMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning truck menu item: %v", ErrDatabaseError, err)
		}
		items = append(items, *tmi)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating truck menu items: %v", ErrDatabaseError, err)
	}
	return items, nil
}

func (r *menuRepository) UpdateTruckMenuItem(executor SQLExecutor, tmi *models.TruckMenuItem) error {
	query := `UPDATE truck_menu_items SET
	            visible = $1, price_override_cents = $2, stock_count = $3, out_of_stock = $4,
	            low_stock_threshold = $5, prep_time_sec = $6, display_name = $7,
	            display_description = $8, category_id = $9, available_start = $10,
	            available_end = $11, display_order = $12, last_stock_update_at = $13
	          WHERE id = $14`
	var stockCount sql.NullInt64
	if tmi.StockCount != nil {
		stockCount = sql.NullInt64{Int64: int64(*tmi.StockCount), Valid: true}
	}
	result, err := executor.Exec(query,
		tmi.Visible, tmi.PriceOverrideCents, stockCount, tmi.OutOfStock,
		tmi.LowStockThreshold, tmi.PrepTimeSec, tmi.DisplayName,
		tmi.DisplayDescription, tmi.CategoryID, tmi.AvailableStart,
		tmi.AvailableEnd, tmi.DisplayOrder, tmi.LastStockUpdateAt,
		tmi.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating truck menu item ID %d: %v", ErrDatabaseError, tmi.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *menuRepository) DeleteTruckMenuItem(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM truck_menu_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting truck menu item ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReserveStock conditionally decrements a tracked stock count. The guard in
// the UPDATE makes the read-check-write atomic: a concurrent reservation of
// the same row cannot drive the count negative. Items with a NULL stock count
// are unlimited; the reservation is a no-op and tracked is false.
func (r *menuRepository) ReserveStock(executor SQLExecutor, tmiID int64, qty int, now time.Time) (sql.NullInt64, bool, error) {
	query := `UPDATE truck_menu_items
	          SET stock_count = stock_count - $1,
	              out_of_stock = (stock_count - $1 <= 0),
	              last_stock_update_at = $2
	          WHERE id = $3 AND stock_count IS NOT NULL AND stock_count >= $1
	          RETURNING stock_count`
	var newStock sql.NullInt64
	err := executor.QueryRow(query, qty, now, tmiID).Scan(&newStock)
	if err == nil {
		return newStock, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return sql.NullInt64{}, false, fmt.Errorf("%w: reserving stock for truck menu item %d: %v", ErrDatabaseError, tmiID, err)
	}

	// Nothing updated: item missing, untracked, or short on stock.
	var currentStock sql.NullInt64
	checkErr := executor.QueryRow(`SELECT stock_count FROM truck_menu_items WHERE id = $1`, tmiID).Scan(&currentStock)
	if errors.Is(checkErr, sql.ErrNoRows) {
		return sql.NullInt64{}, false, ErrNotFound
	}
	if checkErr != nil {
		return sql.NullInt64{}, false, fmt.Errorf("%w: checking stock for truck menu item %d: %v", ErrDatabaseError, tmiID, checkErr)
	}
	if !currentStock.Valid {
		return sql.NullInt64{}, false, nil // unlimited stock
	}
	return currentStock, true, fmt.Errorf("%w: truck menu item %d has %d, requested %d",
		ErrInsufficientStock, tmiID, currentStock.Int64, qty)
}
