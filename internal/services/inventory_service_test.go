package services

import (
	"database/sql"
	"testing"

	"fusionx_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventoryFixture struct {
	svc      InventoryService
	menu     *fakeMenuRepo
	ledger   *fakeInventoryRepo
	sink     *recordingSink
	notifier *recordingNotifier
}

func newInventoryFixture(t *testing.T, db *sql.DB) *inventoryFixture {
	t.Helper()
	fx := &inventoryFixture{
		menu:     newFakeMenuRepo(),
		ledger:   &fakeInventoryRepo{},
		sink:     &recordingSink{},
		notifier: &recordingNotifier{},
	}
	fx.svc = NewInventoryService(fx.menu, fx.ledger, fx.sink, fx.notifier, db)
	return fx
}

const invShiftID = int64(11)

func (fx *inventoryFixture) trackedItem(stock, threshold int) *models.TruckMenuItem {
	return fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           invShiftID,
		Visible:           true,
		DisplayName:       strPtr("Carnitas Bowl"),
		StockCount:        intPtr(stock),
		LowStockThreshold: threshold,
	})
}

func TestUpdateInventoryWritesManualLedgerEntry(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 1))
	tmi := fx.trackedItem(5, 1)

	updated, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(2)}},
	}, int64Ptr(7))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 2, *updated[0].StockCount)

	require.Len(t, fx.ledger.entries, 1)
	entry := fx.ledger.entries[0]
	assert.Equal(t, -3, entry.Delta)
	assert.Equal(t, models.AdjustmentReasonManual, entry.Reason)
	require.NotNil(t, entry.StaffID)
	assert.Equal(t, int64(7), *entry.StaffID)
}

func TestUpdateInventoryClampsNegativeToZero(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 1))
	tmi := fx.trackedItem(4, 1)

	updated, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(-5)}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, *updated[0].StockCount)
	assert.True(t, updated[0].OutOfStock)

	require.Len(t, fx.ledger.entries, 1)
	assert.Equal(t, -4, fx.ledger.entries[0].Delta)
}

func TestUpdateInventoryNoDeltaNoLedger(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 1))
	tmi := fx.trackedItem(5, 1)

	_, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(5)}},
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, fx.ledger.entries)
}

func TestUpdateInventoryFirstCountStartsTracking(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 1))
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID: invShiftID,
		Visible: true,
	})

	updated, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(12)}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, *updated[0].StockCount)

	// Going from untracked to tracked books the full count.
	require.Len(t, fx.ledger.entries, 1)
	assert.Equal(t, 12, fx.ledger.entries[0].Delta)
}

func TestUpdateInventoryClearStockStopsTracking(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 1))
	tmi := fx.trackedItem(0, 1)

	updated, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, ClearStock: true}},
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, updated[0].StockCount)
	assert.False(t, updated[0].OutOfStock)
	assert.Empty(t, fx.ledger.entries)
}

func TestUpdateInventoryAlertsOnlyOnCrossing(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 2))
	tmi := fx.trackedItem(5, 2)

	// 5 -> 1 crosses the threshold: one alert.
	_, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(1)}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, fx.sink.ofType("low_stock"), 1)
	assert.Equal(t, []string{"Carnitas Bowl"}, fx.notifier.lowStock)

	// 1 -> 2, still at the threshold: no second alert.
	_, err = fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(2)}},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, fx.sink.ofType("low_stock"), 1)
}

func TestUpdateInventoryRejectsForeignShiftItem(t *testing.T) {
	fx := newInventoryFixture(t, newRollbackDB(t))
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:    invShiftID + 1,
		StockCount: intPtr(3),
	})

	_, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
		Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(1)}},
	}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetShiftInventoryFlagsLowStock(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 0))
	fx.trackedItem(1, 2)
	fx.trackedItem(9, 2)
	fx.menu.addTruckItem(&models.TruckMenuItem{ShiftID: invShiftID, OutOfStock: true})

	statuses, err := fx.svc.GetShiftInventory(invShiftID)
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	low := 0
	for _, s := range statuses {
		if s.LowStock {
			low++
		}
	}
	assert.Equal(t, 2, low)
}

func TestLedgerDeltasReconcileWithStock(t *testing.T) {
	fx := newInventoryFixture(t, newTxDB(t, 3))
	tmi := fx.trackedItem(10, 1)

	for _, target := range []int{6, 8, 3} {
		_, err := fx.svc.UpdateInventory(invShiftID, UpdateInventoryRequest{
			Lines: []InventoryUpdateLine{{TruckMenuItemID: tmi.ID, StockCount: intPtr(target)}},
		}, nil)
		require.NoError(t, err)
	}

	var sum int
	for _, entry := range fx.ledger.entries {
		sum += entry.Delta
	}
	stored, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	// Applied deltas plus the initial count equal the live stock.
	assert.Equal(t, *stored.StockCount, 10+sum)
}
