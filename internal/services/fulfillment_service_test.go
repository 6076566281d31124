package services

import (
	"context"
	"database/sql"
	"testing"

	"fusionx_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fulfillmentFixture struct {
	svc       FulfillmentService
	orders    *fakeOrderRepo
	menu      *fakeMenuRepo
	shifts    *fakeShiftRepo
	inventory *fakeInventoryRepo
	loyalty   *fakeLoyaltyRepo
	throttle  *fakeThrottle
	sink      *recordingSink
	notifier  *recordingNotifier
}

func newFulfillmentFixture(t *testing.T, db *sql.DB) *fulfillmentFixture {
	t.Helper()
	fx := &fulfillmentFixture{
		orders:    newFakeOrderRepo(),
		menu:      newFakeMenuRepo(),
		shifts:    newFakeShiftRepo(),
		inventory: &fakeInventoryRepo{},
		loyalty:   &fakeLoyaltyRepo{},
		throttle:  &fakeThrottle{admit: true},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}
	fx.svc = NewFulfillmentService(
		fx.orders, fx.menu, fx.shifts, fx.inventory, fx.loyalty,
		fx.throttle, fx.sink, fx.notifier, db, 875,
	)
	return fx
}

func (fx *fulfillmentFixture) openShift() *models.TruckShift {
	return fx.shifts.add(&models.TruckShift{
		TruckID:         1,
		LocationID:      1,
		Status:          models.ShiftCheckedIn,
		ThrottlePer5Min: 10,
	})
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestCreateCustomerOrderPricesAndBroadcasts(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	price := int64(1200)
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:            shift.ID,
		Visible:            true,
		PriceOverrideCents: &price,
		DisplayName:        strPtr("Birria Tacos"),
		StockCount:         intPtr(10),
		LowStockThreshold:  2,
	})

	order, err := fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID:  shift.ID,
		TipCents: 300,
		Lines:    []CustomerOrderLine{{TruckMenuItemID: &tmi.ID, Qty: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateNew, order.State)
	assert.Equal(t, int64(2400), order.SubtotalCents)
	assert.Equal(t, int64(2400*875/10000), order.TaxCents)
	assert.Equal(t, int64(300), order.TipCents)
	assert.Equal(t, order.SubtotalCents+order.TaxCents+order.TipCents, order.TotalCents)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Birria Tacos", order.Items[0].Name)

	// Stock is only reserved at payment time, never at intake.
	stored, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	assert.Equal(t, 10, *stored.StockCount)

	events := fx.sink.ofType("new_order")
	require.Len(t, events, 1)
	assert.True(t, events[0].staffOnly)
	assert.Equal(t, []int64{order.ID}, fx.notifier.newOrders)
}

func TestCreateCustomerOrderThrottled(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 0))
	shift := fx.openShift()
	fx.throttle.admit = false

	_, err := fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID: shift.ID,
		Lines:   []CustomerOrderLine{{MenuItemID: int64Ptr(1), Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestCreateCustomerOrderThrottleFailsOpen(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	fx.throttle.admit = false
	fx.throttle.err = assert.AnError

	price := int64(500)
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:            shift.ID,
		Visible:            true,
		PriceOverrideCents: &price,
		DisplayName:        strPtr("Elote"),
	})

	order, err := fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID: shift.ID,
		Lines:   []CustomerOrderLine{{TruckMenuItemID: &tmi.ID, Qty: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateNew, order.State)
}

func TestCreateCustomerOrderRejectedWhilePaused(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 0))
	shift := fx.shifts.add(&models.TruckShift{TruckID: 1, Status: models.ShiftPaused})

	_, err := fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID: shift.ID,
		Lines:   []CustomerOrderLine{{MenuItemID: int64Ptr(1), Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrShiftPaused)

	shift.Status = models.ShiftCheckedOut
	_, err = fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID: shift.ID,
		Lines:   []CustomerOrderLine{{MenuItemID: int64Ptr(1), Qty: 1}},
	})
	assert.ErrorIs(t, err, ErrShiftClosed)
}

func TestCreateCustomerOrderRejectsShortStock(t *testing.T) {
	fx := newFulfillmentFixture(t, newRollbackDB(t))
	shift := fx.openShift()
	price := int64(900)
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:            shift.ID,
		Visible:            true,
		PriceOverrideCents: &price,
		StockCount:         intPtr(1),
	})

	_, err := fx.svc.CreateCustomerOrder(context.Background(), CreateCustomerOrderRequest{
		ShiftID: shift.ID,
		Lines:   []CustomerOrderLine{{TruckMenuItemID: &tmi.ID, Qty: 3}},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func paidableOrder(fx *fulfillmentFixture, shiftID int64, tmiID *int64, qty int) *models.Order {
	item := models.OrderItem{
		TruckMenuItemID: tmiID,
		Name:            "Birria Tacos",
		Qty:             qty,
		PriceCents:      1200,
	}
	return fx.orders.add(&models.Order{
		ShiftID:       shiftID,
		State:         models.StateNew,
		CustomerPhone: strPtr("+15550100"),
		SubtotalCents: 1200 * int64(qty),
		TotalCents:    2550,
	}, item)
}

func TestConfirmPaymentFirstConfirmationRunsFulfillment(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           shift.ID,
		Visible:           true,
		StockCount:        intPtr(5),
		LowStockThreshold: 1,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 3)

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid", PaymentReference: "sq_987"})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, models.StatePaid, result.State)

	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, models.StatePaid, stored.State)
	require.NotNil(t, stored.PaymentReference)
	assert.Equal(t, "sq_987", *stored.PaymentReference)

	item, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	assert.Equal(t, 2, *item.StockCount)

	require.Len(t, fx.inventory.entries, 1)
	assert.Equal(t, -3, fx.inventory.entries[0].Delta)
	assert.Equal(t, models.AdjustmentReasonPayment, fx.inventory.entries[0].Reason)

	// 2550 cents -> 2 points.
	require.Len(t, fx.loyalty.entries, 1)
	assert.Equal(t, 2, fx.loyalty.entries[0].Points)
	assert.Equal(t, 2, result.Points)
	assert.Equal(t, 2, stored.LoyaltyPointsAwarded)

	require.Len(t, fx.sink.ofType("payment_received"), 1)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	fx := newFulfillmentFixture(t, db)
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           shift.ID,
		Visible:           true,
		StockCount:        intPtr(5),
		LowStockThreshold: 1,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 3)

	first, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	require.True(t, first.Applied)

	second, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, models.StatePaid, second.State)

	// Replayed webhook must not repeat any side effect.
	item, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	assert.Equal(t, 2, *item.StockCount)
	assert.Len(t, fx.inventory.entries, 1)
	assert.Len(t, fx.loyalty.entries, 1)
}

func TestConfirmPaymentIgnoresNonPaidStatus(t *testing.T) {
	fx := newFulfillmentFixture(t, newRollbackDB(t))
	shift := fx.openShift()
	order := paidableOrder(fx, shift.ID, nil, 1)

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "failed"})
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, models.StateNew, result.State)

	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, models.StateNew, stored.State)
}

func TestConfirmPaymentReportsStateWhenAlreadyInKitchen(t *testing.T) {
	fx := newFulfillmentFixture(t, newRollbackDB(t))
	shift := fx.openShift()
	order := fx.orders.add(&models.Order{ShiftID: shift.ID, State: models.StateInProgress})

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, models.StateInProgress, result.State)
	assert.Empty(t, fx.inventory.entries)
}

func TestConfirmPaymentShortStockRollsBackWholeConfirmation(t *testing.T) {
	fx := newFulfillmentFixture(t, newRollbackDB(t))
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           shift.ID,
		Visible:           true,
		StockCount:        intPtr(2),
		LowStockThreshold: 1,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 3)

	_, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing committed: stock, ledger, loyalty and order state untouched.
	item, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	assert.Equal(t, 2, *item.StockCount)
	assert.Empty(t, fx.inventory.entries)
	assert.Empty(t, fx.loyalty.entries)
	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, models.StateNew, stored.State)
	assert.Empty(t, fx.sink.ofType("payment_received"))
}

func TestConfirmPaymentUntrackedItemsSkipLedger(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID: shift.ID,
		Visible: true,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 4)

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Empty(t, fx.inventory.entries)

	item, _ := fx.menu.GetTruckMenuItemByID(nil, tmi.ID)
	assert.Nil(t, item.StockCount)
}

func TestConfirmPaymentEmitsLowStockOnce(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           shift.ID,
		Visible:           true,
		DisplayName:       strPtr("Birria Tacos"),
		StockCount:        intPtr(5),
		LowStockThreshold: 2,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 3)

	_, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)

	alerts := fx.sink.ofType("low_stock")
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].staffOnly)
	assert.Equal(t, "Birria Tacos", alerts[0].event["item_name"])
	assert.Equal(t, []string{"Birria Tacos"}, fx.notifier.lowStock)
}

func TestConfirmPaymentAlreadyLowItemDoesNotRealert(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	tmi := fx.menu.addTruckItem(&models.TruckMenuItem{
		ShiftID:           shift.ID,
		Visible:           true,
		DisplayName:       strPtr("Elote"),
		StockCount:        intPtr(1),
		LowStockThreshold: 2,
	})
	order := paidableOrder(fx, shift.ID, &tmi.ID, 1)

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	require.True(t, result.Applied)

	// The item was below threshold before this payment; no new crossing.
	assert.Empty(t, fx.sink.ofType("low_stock"))
	assert.Empty(t, fx.notifier.lowStock)
}

func TestConfirmPaymentRecomputesZeroTotalFromLines(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	item := models.OrderItem{Name: "Agua Fresca", Qty: 2, PriceCents: 600}
	order := fx.orders.add(&models.Order{
		ShiftID:       shift.ID,
		State:         models.StateNew,
		CustomerPhone: strPtr("+15550100"),
	}, item)

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, int64(1200), stored.TotalCents)
	require.Len(t, fx.loyalty.entries, 1)
	assert.Equal(t, 1, fx.loyalty.entries[0].Points)
}

func TestConfirmPaymentNoPhoneNoLoyalty(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	order := fx.orders.add(&models.Order{
		ShiftID:    shift.ID,
		State:      models.StateNew,
		TotalCents: 5000,
	})

	result, err := fx.svc.ConfirmPayment(order.ID, PaymentNotification{Status: "paid"})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Zero(t, result.Points)
	assert.Empty(t, fx.loyalty.entries)
}

func TestAutoReconcileMovesPaidToQueue(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 1))
	shift := fx.openShift()
	fx.orders.add(&models.Order{ShiftID: shift.ID, State: models.StatePaid})
	fx.orders.add(&models.Order{ShiftID: shift.ID, State: models.StatePaid})
	fx.orders.add(&models.Order{ShiftID: shift.ID, State: models.StateReady})

	updated, err := fx.svc.AutoReconcile(shift.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	queued, _ := fx.orders.GetOrdersByShift(shift.ID, []models.OrderState{models.StateInQueue})
	assert.Len(t, queued, 2)
	for _, order := range queued {
		assert.NotNil(t, order.AutoReconciledAt)
	}
}

func TestGetLoyaltyAccountSumsLedger(t *testing.T) {
	fx := newFulfillmentFixture(t, newTxDB(t, 0))
	fx.loyalty.entries = []models.LoyaltyLedger{
		{CustomerPhone: "+15550100", Points: 2},
		{CustomerPhone: "+15550100", Points: 3},
		{CustomerPhone: "+15550199", Points: 9},
	}

	account, err := fx.svc.GetLoyaltyAccount("+15550100")
	require.NoError(t, err)
	assert.Equal(t, 5, account.Balance)
	assert.Len(t, account.Entries, 2)
}
