package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newTxDB returns a sqlmock-backed *sql.DB expecting n begin/commit pairs.
// All real data access in these tests goes through in-memory fakes; the mock
// only stands in for transaction control.
func newTxDB(t *testing.T, commits int) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	for i := 0; i < commits; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newRollbackDB expects a transaction that starts but never commits.
func newRollbackDB(t *testing.T) *sql.DB {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectBegin()
	mock.ExpectRollback()
	t.Cleanup(func() { db.Close() })
	return db
}

// --- recording event sink and notifier ---

type recordedEvent struct {
	shiftID   int64
	staffOnly bool
	event     map[string]interface{}
}

type recordingSink struct {
	events []recordedEvent
}

func (r *recordingSink) Broadcast(shiftID int64, event map[string]interface{}) {
	r.events = append(r.events, recordedEvent{shiftID: shiftID, event: event})
}

func (r *recordingSink) BroadcastStaff(shiftID int64, event map[string]interface{}) {
	r.events = append(r.events, recordedEvent{shiftID: shiftID, staffOnly: true, event: event})
}

func (r *recordingSink) ofType(eventType string) []recordedEvent {
	var out []recordedEvent
	for _, e := range r.events {
		if e.event["event"] == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	lowStock  []string
	newOrders []int64
}

func (r *recordingNotifier) NotifyLowStock(_ int64, itemName string, _ *int) {
	r.lowStock = append(r.lowStock, itemName)
}

func (r *recordingNotifier) NotifyNewOrder(_, orderID int64) {
	r.newOrders = append(r.newOrders, orderID)
}

// --- fake throttle ---

type fakeThrottle struct {
	admit bool
	err   error
	calls int
}

func (f *fakeThrottle) Admit(context.Context, int64, int, time.Time) (bool, error) {
	f.calls++
	return f.admit, f.err
}

// --- fake order repository ---

type fakeOrderRepo struct {
	orders map[int64]*models.Order
	items  map[int64][]models.OrderItem
	nextID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]models.OrderItem),
	}
}

func (f *fakeOrderRepo) add(order *models.Order, items ...models.OrderItem) *models.Order {
	f.nextID++
	order.ID = f.nextID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	f.orders[order.ID] = order
	for i := range items {
		items[i].OrderID = order.ID
	}
	f.items[order.ID] = items
	return order
}

func (f *fakeOrderRepo) CreateOrder(_ repositories.SQLExecutor, order *models.Order) (int64, error) {
	f.nextID++
	order.ID = f.nextID
	clone := *order
	f.orders[order.ID] = &clone
	return order.ID, nil
}

func (f *fakeOrderRepo) CreateOrderItem(_ repositories.SQLExecutor, item *models.OrderItem) (int64, error) {
	f.nextID++
	item.ID = f.nextID
	f.items[item.OrderID] = append(f.items[item.OrderID], *item)
	return item.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(_ repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrderRepo) GetOrderForUpdate(executor repositories.SQLExecutor, orderID int64) (*models.Order, error) {
	return f.GetOrderByID(executor, orderID)
}

func (f *fakeOrderRepo) GetOrderItems(_ repositories.SQLExecutor, orderID int64) ([]models.OrderItem, error) {
	return append([]models.OrderItem{}, f.items[orderID]...), nil
}

func (f *fakeOrderRepo) UpdateOrderLifecycle(_ repositories.SQLExecutor, order *models.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *order
	f.orders[order.ID] = &clone
	return nil
}

func (f *fakeOrderRepo) GetOrdersByShift(shiftID int64, states []models.OrderState) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		if order.ShiftID != shiftID {
			continue
		}
		if len(states) > 0 {
			match := false
			for _, s := range states {
				if order.State == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *order)
	}
	return out, nil
}

func (f *fakeOrderRepo) AdvanceReadyToPickedUp(_ repositories.SQLExecutor, shiftID int64, orderIDs []int64, now time.Time) (int64, error) {
	var updated int64
	for _, id := range orderIDs {
		order, ok := f.orders[id]
		if !ok || order.ShiftID != shiftID || order.State != models.StateReady {
			continue
		}
		order.PreviousState = nil
		order.State = models.StatePickedUp
		order.LastStateChangeAt = now
		updated++
	}
	return updated, nil
}

func (f *fakeOrderRepo) ReconcilePaidToQueue(_ repositories.SQLExecutor, shiftID int64, now time.Time) (int64, error) {
	var updated int64
	for _, order := range f.orders {
		if order.ShiftID != shiftID || order.State != models.StatePaid {
			continue
		}
		order.PreviousState = nil
		order.State = models.StateInQueue
		order.AutoReconciledAt = &now
		order.LastStateChangeAt = now
		updated++
	}
	return updated, nil
}

// --- fake menu repository ---

type fakeMenuRepo struct {
	truckItems map[int64]*models.TruckMenuItem
	baseItems  map[int64]*models.MenuItem
	categories []models.MenuCategory
	nextID     int64
}

func newFakeMenuRepo() *fakeMenuRepo {
	return &fakeMenuRepo{
		truckItems: make(map[int64]*models.TruckMenuItem),
		baseItems:  make(map[int64]*models.MenuItem),
	}
}

func (f *fakeMenuRepo) addTruckItem(tmi *models.TruckMenuItem) *models.TruckMenuItem {
	f.nextID++
	tmi.ID = f.nextID
	f.truckItems[tmi.ID] = tmi
	return tmi
}

func (f *fakeMenuRepo) CreateCategory(_ repositories.SQLExecutor, category *models.MenuCategory) (int64, error) {
	f.nextID++
	category.ID = f.nextID
	f.categories = append(f.categories, *category)
	return category.ID, nil
}

func (f *fakeMenuRepo) GetCategories() ([]models.MenuCategory, error) {
	return append([]models.MenuCategory{}, f.categories...), nil
}

func (f *fakeMenuRepo) UpdateCategory(repositories.SQLExecutor, *models.MenuCategory) error { return nil }
func (f *fakeMenuRepo) DeleteCategory(repositories.SQLExecutor, int64) error               { return nil }

func (f *fakeMenuRepo) CreateItem(_ repositories.SQLExecutor, item *models.MenuItem) (int64, error) {
	f.nextID++
	item.ID = f.nextID
	f.baseItems[item.ID] = item
	return item.ID, nil
}

func (f *fakeMenuRepo) GetItemByID(_ repositories.SQLExecutor, id int64) (*models.MenuItem, error) {
	item, ok := f.baseItems[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return item, nil
}

func (f *fakeMenuRepo) GetItems(bool) ([]models.MenuItem, error)                   { return nil, nil }
func (f *fakeMenuRepo) UpdateItem(repositories.SQLExecutor, *models.MenuItem) error { return nil }
func (f *fakeMenuRepo) DeleteItem(repositories.SQLExecutor, int64) error            { return nil }

func (f *fakeMenuRepo) CreateTruckMenuItem(_ repositories.SQLExecutor, tmi *models.TruckMenuItem) (int64, error) {
	f.addTruckItem(tmi)
	return tmi.ID, nil
}

func (f *fakeMenuRepo) GetTruckMenuItemByID(_ repositories.SQLExecutor, id int64) (*models.TruckMenuItem, error) {
	tmi, ok := f.truckItems[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *tmi
	return &clone, nil
}

func (f *fakeMenuRepo) GetTruckMenuItemForShift(_ repositories.SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error) {
	for _, tmi := range f.truckItems {
		if tmi.ShiftID == shiftID && tmi.MenuItemID != nil && *tmi.MenuItemID == menuItemID && !tmi.IsSpecial {
			clone := *tmi
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeMenuRepo) EnsureTruckMenuItem(executor repositories.SQLExecutor, shiftID, menuItemID int64) (*models.TruckMenuItem, error) {
	if tmi, err := f.GetTruckMenuItemForShift(executor, shiftID, menuItemID); err == nil {
		return tmi, nil
	}
	tmi := &models.TruckMenuItem{
		ShiftID:           shiftID,
		MenuItemID:        &menuItemID,
		Visible:           true,
		LowStockThreshold: 2,
		PrepTimeSec:       300,
	}
	f.addTruckItem(tmi)
	clone := *tmi
	return &clone, nil
}

func (f *fakeMenuRepo) ListTruckMenuItems(shiftID int64, specialsOnly bool) ([]models.TruckMenuItem, error) {
	var out []models.TruckMenuItem
	for _, tmi := range f.truckItems {
		if tmi.ShiftID != shiftID {
			continue
		}
		if specialsOnly && !tmi.IsSpecial {
			continue
		}
		out = append(out, *tmi)
	}
	return out, nil
}

func (f *fakeMenuRepo) UpdateTruckMenuItem(_ repositories.SQLExecutor, tmi *models.TruckMenuItem) error {
	if _, ok := f.truckItems[tmi.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *tmi
	f.truckItems[tmi.ID] = &clone
	return nil
}

func (f *fakeMenuRepo) DeleteTruckMenuItem(_ repositories.SQLExecutor, id int64) error {
	if _, ok := f.truckItems[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.truckItems, id)
	return nil
}

func (f *fakeMenuRepo) ReserveStock(_ repositories.SQLExecutor, tmiID int64, qty int, now time.Time) (sql.NullInt64, bool, error) {
	tmi, ok := f.truckItems[tmiID]
	if !ok {
		return sql.NullInt64{}, false, repositories.ErrNotFound
	}
	if tmi.StockCount == nil {
		return sql.NullInt64{}, false, nil
	}
	if *tmi.StockCount < qty {
		return sql.NullInt64{Int64: int64(*tmi.StockCount), Valid: true}, true, repositories.ErrInsufficientStock
	}
	newCount := *tmi.StockCount - qty
	tmi.StockCount = &newCount
	tmi.OutOfStock = newCount <= 0
	tmi.LastStockUpdateAt = &now
	return sql.NullInt64{Int64: int64(newCount), Valid: true}, true, nil
}

// --- fake shift repository ---

type fakeShiftRepo struct {
	shifts map[int64]*models.TruckShift
	nextID int64
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{shifts: make(map[int64]*models.TruckShift)}
}

func (f *fakeShiftRepo) add(shift *models.TruckShift) *models.TruckShift {
	f.nextID++
	shift.ID = f.nextID
	f.shifts[shift.ID] = shift
	return shift
}

func (f *fakeShiftRepo) CreateShift(_ repositories.SQLExecutor, shift *models.TruckShift) (int64, error) {
	f.add(shift)
	return shift.ID, nil
}

func (f *fakeShiftRepo) GetShiftByID(_ repositories.SQLExecutor, id int64) (*models.TruckShift, error) {
	shift, ok := f.shifts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *shift
	return &clone, nil
}

func (f *fakeShiftRepo) GetActiveShiftForTruck(_ repositories.SQLExecutor, truckID int64) (*models.TruckShift, error) {
	for _, shift := range f.shifts {
		if shift.TruckID == truckID && shift.Status != models.ShiftCheckedOut {
			clone := *shift
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeShiftRepo) GetOpenShifts() ([]models.TruckShift, error) {
	var out []models.TruckShift
	for _, shift := range f.shifts {
		if shift.Status != models.ShiftCheckedOut {
			out = append(out, *shift)
		}
	}
	return out, nil
}

func (f *fakeShiftRepo) UpdateShift(_ repositories.SQLExecutor, shift *models.TruckShift) error {
	if _, ok := f.shifts[shift.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *shift
	f.shifts[shift.ID] = &clone
	return nil
}

// --- fake inventory repository ---

type fakeInventoryRepo struct {
	entries []models.InventoryAdjustment
	nextID  int64
}

func (f *fakeInventoryRepo) CreateAdjustment(_ repositories.SQLExecutor, adj *models.InventoryAdjustment) (int64, error) {
	f.nextID++
	adj.ID = f.nextID
	f.entries = append(f.entries, *adj)
	return adj.ID, nil
}

func (f *fakeInventoryRepo) GetAdjustmentsByShift(shiftID int64) ([]models.InventoryAdjustment, error) {
	var out []models.InventoryAdjustment
	for _, e := range f.entries {
		if e.ShiftID == shiftID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) GetAdjustmentsByTruckMenuItem(tmiID int64) ([]models.InventoryAdjustment, error) {
	var out []models.InventoryAdjustment
	for _, e := range f.entries {
		if e.TruckMenuItemID != nil && *e.TruckMenuItemID == tmiID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- fake loyalty repository ---

type fakeLoyaltyRepo struct {
	entries []models.LoyaltyLedger
	nextID  int64
}

func (f *fakeLoyaltyRepo) CreateEntry(_ repositories.SQLExecutor, entry *models.LoyaltyLedger) (int64, error) {
	f.nextID++
	entry.ID = f.nextID
	f.entries = append(f.entries, *entry)
	return entry.ID, nil
}

func (f *fakeLoyaltyRepo) GetBalance(_ repositories.SQLExecutor, customerPhone string) (int, error) {
	balance := 0
	for _, e := range f.entries {
		if e.CustomerPhone == customerPhone {
			balance += e.Points
		}
	}
	return balance, nil
}

func (f *fakeLoyaltyRepo) GetEntriesByPhone(customerPhone string) ([]models.LoyaltyLedger, error) {
	var out []models.LoyaltyLedger
	for _, e := range f.entries {
		if e.CustomerPhone == customerPhone {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- fake audit repository ---

type fakeAuditRepo struct {
	entries []models.AuditLog
	nextID  int64
}

func (f *fakeAuditRepo) CreateEntry(_ repositories.SQLExecutor, entry *models.AuditLog) (int64, error) {
	f.nextID++
	entry.ID = f.nextID
	f.entries = append(f.entries, *entry)
	return entry.ID, nil
}

func (f *fakeAuditRepo) GetEntries(string, *int64, int) ([]models.AuditLog, error) {
	return append([]models.AuditLog{}, f.entries...), nil
}
