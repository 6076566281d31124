package services

import (
	"database/sql"
	"testing"
	"time"

	"fusionx_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	svc    OrderService
	orders *fakeOrderRepo
	audit  *fakeAuditRepo
	sink   *recordingSink
}

func newOrderFixture(t *testing.T, db *sql.DB) *orderFixture {
	t.Helper()
	fx := &orderFixture{
		orders: newFakeOrderRepo(),
		audit:  &fakeAuditRepo{},
		sink:   &recordingSink{},
	}
	fx.svc = NewOrderService(fx.orders, fx.audit, fx.sink, db)
	return fx
}

func TestAdvanceOrderPersistsAuditsAndBroadcasts(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 1))
	order := fx.orders.add(&models.Order{ShiftID: 3, State: models.StateInQueue})

	advanced, err := fx.svc.AdvanceOrder(order.ID, models.StateInProgress, int64Ptr(9))
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, advanced.State)

	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, models.StateInProgress, stored.State)

	require.Len(t, fx.audit.entries, 1)
	assert.Equal(t, "order.advance", fx.audit.entries[0].Action)
	require.NotNil(t, fx.audit.entries[0].StaffID)
	assert.Equal(t, int64(9), *fx.audit.entries[0].StaffID)

	events := fx.sink.ofType("order_advanced")
	require.Len(t, events, 1)
	assert.Equal(t, int64(3), events[0].shiftID)
}

func TestAdvanceOrderInvalidTransitionLeavesNoTrace(t *testing.T) {
	fx := newOrderFixture(t, newRollbackDB(t))
	order := fx.orders.add(&models.Order{ShiftID: 3, State: models.StatePaid})

	_, err := fx.svc.AdvanceOrder(order.ID, models.StateReady, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	stored, _ := fx.orders.GetOrderByID(nil, order.ID)
	assert.Equal(t, models.StatePaid, stored.State)
	assert.Empty(t, fx.audit.entries)
	assert.Empty(t, fx.sink.events)
}

func TestAdvanceOrderUnknownOrder(t *testing.T) {
	fx := newOrderFixture(t, newRollbackDB(t))
	_, err := fx.svc.AdvanceOrder(42, models.StateInProgress, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestHoldDefaultsToFifteenMinutes(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 1))
	order := fx.orders.add(&models.Order{ShiftID: 3, State: models.StateInQueue})

	held, err := fx.svc.HoldOrder(order.ID, HoldOrderRequest{Reason: "line too long"}, nil)
	require.NoError(t, err)
	require.NotNil(t, held.OnHoldUntil)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *held.OnHoldUntil, 5*time.Second)
}

func TestHoldThenResumeRoundTrip(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 2))
	order := fx.orders.add(&models.Order{ShiftID: 3, State: models.StateInProgress})

	held, err := fx.svc.HoldOrder(order.ID, HoldOrderRequest{Reason: "out of tortillas", Minutes: intPtr(20)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StateOnHold, held.State)
	require.NotNil(t, held.OnHoldUntil)
	assert.WithinDuration(t, time.Now().Add(20*time.Minute), *held.OnHoldUntil, 5*time.Second)

	resumed, err := fx.svc.ResumeOrder(order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StateInProgress, resumed.State)
	assert.Nil(t, resumed.PreviousState)
	assert.Nil(t, resumed.HoldReason)

	assert.Len(t, fx.sink.ofType("order_hold"), 1)
	assert.Len(t, fx.sink.ofType("order_resume"), 1)
}

func TestCancelOrderWithRefund(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 1))
	order := fx.orders.add(&models.Order{ShiftID: 3, State: models.StateReady})

	canceled, err := fx.svc.CancelOrder(order.ID, CancelOrderRequest{
		Reason:       "dropped the tray",
		Refund:       true,
		RefundReason: "remade too late",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StateRefunded, canceled.State)
	require.NotNil(t, canceled.CanceledAt)
	require.NotNil(t, canceled.RefundReason)
	assert.Equal(t, "remade too late", *canceled.RefundReason)

	events := fx.sink.ofType("order_cancel")
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0].event["refund"])
}

func TestBulkAdvanceSkipsNonReadyOrders(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 1))
	ready1 := fx.orders.add(&models.Order{ShiftID: 5, State: models.StateReady})
	ready2 := fx.orders.add(&models.Order{ShiftID: 5, State: models.StateReady})
	cooking := fx.orders.add(&models.Order{ShiftID: 5, State: models.StateInProgress})

	updated, err := fx.svc.BulkAdvanceReady(5, BulkAdvanceRequest{
		OrderIDs: []int64{ready1.ID, ready2.ID, cooking.ID},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	stored, _ := fx.orders.GetOrderByID(nil, cooking.ID)
	assert.Equal(t, models.StateInProgress, stored.State)

	events := fx.sink.ofType("bulk_advance")
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].event["updated"])
}

func TestBulkAdvanceRejectsEmptyRequest(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 0))
	_, err := fx.svc.BulkAdvanceReady(5, BulkAdvanceRequest{}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestKDSTicketsExcludeClosedOrders(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 0))
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StateInQueue, CreatedAt: time.Now().Add(-2 * time.Minute)})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StateOnHold, CreatedAt: time.Now()})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StatePickedUp, CreatedAt: time.Now()})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StateCanceled, CreatedAt: time.Now()})

	tickets, err := fx.svc.GetKDSTickets(5)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.False(t, ticket.Order.State.Terminal())
		assert.GreaterOrEqual(t, ticket.AgeSeconds, int64(0))
	}
}

func TestShiftOrderSummaryCountsRevenueFromPickedUpOnly(t *testing.T) {
	fx := newOrderFixture(t, newTxDB(t, 0))
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StatePickedUp, TotalCents: 2000})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StatePickedUp, TotalCents: 1500})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StateReady, TotalCents: 900})
	fx.orders.add(&models.Order{ShiftID: 5, State: models.StateRefunded, TotalCents: 800})

	summary, err := fx.svc.GetShiftOrderSummary(5)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), summary.RevenueCents)
	assert.Equal(t, 1, summary.OpenOrders)
	assert.Equal(t, 2, summary.CountsByState[models.StatePickedUp])
}
