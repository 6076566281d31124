package services

import (
	"testing"
	"time"

	"fusionx_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []models.OrderState{
	models.StateNew, models.StatePaid, models.StateInQueue, models.StateInProgress,
	models.StateReady, models.StateOnHold, models.StatePickedUp, models.StateCanceled,
	models.StateRefunded,
}

func orderIn(state models.OrderState) *models.Order {
	return &models.Order{ID: 1, ShiftID: 1, State: state}
}

func TestAdvanceFollowsTransitionTable(t *testing.T) {
	now := time.Now()
	for _, from := range allStates {
		for _, to := range allStates {
			order := orderIn(from)
			err := applyAdvance(order, to, now)

			if canAdvance(from, to) {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
				assert.Equal(t, to, order.State)
				if to == models.StateOnHold {
					require.NotNil(t, order.PreviousState)
					assert.Equal(t, from, *order.PreviousState)
				} else {
					assert.Nil(t, order.PreviousState, "previous_state carries meaning only while on hold")
				}
				assert.Equal(t, now, order.LastStateChangeAt)
			} else {
				require.Error(t, err, "%s -> %s should be rejected", from, to)
				assert.Equal(t, from, order.State, "rejected advance must not mutate state")
			}
		}
	}
}

func TestAdvanceToReadyStampsPrepCompletion(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateInProgress)

	require.NoError(t, applyAdvance(order, models.StateReady, now))
	require.NotNil(t, order.PrepCompletedAt)
	assert.Equal(t, now, *order.PrepCompletedAt)
}

func TestAdvanceFromTerminalStateFails(t *testing.T) {
	now := time.Now()
	for _, state := range []models.OrderState{models.StatePickedUp, models.StateCanceled, models.StateRefunded} {
		order := orderIn(state)
		err := applyAdvance(order, models.StateInQueue, now)
		assert.ErrorIs(t, err, ErrOrderClosed)
	}
}

func TestAdvanceRejectsUnknownState(t *testing.T) {
	order := orderIn(models.StatePaid)
	err := applyAdvance(order, models.OrderState("SHIPPED"), time.Now())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHoldOnlyFromQueueOrProgress(t *testing.T) {
	now := time.Now()
	for _, state := range allStates {
		order := orderIn(state)
		err := applyHold(order, "ran out of buns", 15, now)

		if state == models.StateInQueue || state == models.StateInProgress {
			require.NoError(t, err)
			assert.Equal(t, models.StateOnHold, order.State)
			require.NotNil(t, order.HoldReason)
			assert.Equal(t, "ran out of buns", *order.HoldReason)
		} else {
			require.Error(t, err, "hold from %s should be rejected", state)
		}
	}
}

func TestHoldSetsDeadlineMinutesAhead(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateInQueue)

	require.NoError(t, applyHold(order, "grill down", 20, now))
	require.NotNil(t, order.OnHoldUntil)
	assert.Equal(t, now.Add(20*time.Minute), *order.OnHoldUntil)
}

func TestHoldRejectsNonPositiveMinutes(t *testing.T) {
	order := orderIn(models.StateInQueue)
	assert.ErrorIs(t, applyHold(order, "", 0, time.Now()), ErrValidation)
	assert.Equal(t, models.StateInQueue, order.State)
}

func TestResumeRestoresPreviousStateAndClearsIt(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateInProgress)
	require.NoError(t, applyHold(order, "grill down", 15, now))
	require.NoError(t, applyResume(order, now.Add(time.Minute)))

	assert.Equal(t, models.StateInProgress, order.State)
	assert.Nil(t, order.PreviousState)
	assert.Nil(t, order.HoldReason)
	assert.Nil(t, order.OnHoldUntil)
}

func TestResumeDefaultsToQueue(t *testing.T) {
	order := orderIn(models.StateOnHold)
	order.PreviousState = nil

	require.NoError(t, applyResume(order, time.Now()))
	assert.Equal(t, models.StateInQueue, order.State)
}

func TestResumeOnlyFromHold(t *testing.T) {
	for _, state := range allStates {
		if state == models.StateOnHold {
			continue
		}
		order := orderIn(state)
		assert.ErrorIs(t, applyResume(order, time.Now()), ErrInvalidTransition)
	}
}

func TestCancelFromReadyIsAllowed(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateReady)

	require.NoError(t, applyCancel(order, "customer left", false, "", now))
	assert.Equal(t, models.StateCanceled, order.State)
	require.NotNil(t, order.CanceledAt)
	require.NotNil(t, order.CancellationReason)
	assert.Equal(t, "customer left", *order.CancellationReason)
	assert.Nil(t, order.RefundedAt)
}

func TestCancelWithRefundStampsBothFieldSets(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StatePaid)

	require.NoError(t, applyCancel(order, "wrong order", true, "card reversal", now))
	assert.Equal(t, models.StateRefunded, order.State)
	require.NotNil(t, order.RefundedAt)
	require.NotNil(t, order.RefundReason)
	assert.Equal(t, "card reversal", *order.RefundReason)

	// A refund is still a cancellation; both field sets are stamped.
	require.NotNil(t, order.CanceledAt)
	require.NotNil(t, order.CancellationReason)
	assert.Equal(t, "wrong order", *order.CancellationReason)
}

func TestCancelBlockedAfterPickupAndFromTerminal(t *testing.T) {
	for _, state := range []models.OrderState{models.StatePickedUp, models.StateCanceled, models.StateRefunded} {
		order := orderIn(state)
		err := applyCancel(order, "", false, "", time.Now())
		assert.ErrorIs(t, err, ErrOrderClosed)
		assert.Equal(t, state, order.State)
	}
}

func TestCancelClearsHoldFields(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateInQueue)
	require.NoError(t, applyHold(order, "waiting on supplies", 10, now))

	require.NoError(t, applyCancel(order, "giving up", false, "", now.Add(time.Minute)))
	assert.Nil(t, order.HoldReason)
	assert.Nil(t, order.OnHoldUntil)
}

func TestPaymentConfirmationFromNew(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateNew)

	first, err := applyPaymentConfirmation(order, "sq_123", now)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, models.StatePaid, order.State)
	require.NotNil(t, order.PaymentReference)
	assert.Equal(t, "sq_123", *order.PaymentReference)
}

func TestPaymentConfirmationIsIdempotent(t *testing.T) {
	now := time.Now()
	order := orderIn(models.StateNew)

	first, err := applyPaymentConfirmation(order, "sq_123", now)
	require.NoError(t, err)
	require.True(t, first)

	again, err := applyPaymentConfirmation(order, "sq_123", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, again, "second confirmation must report not-first")
	assert.Equal(t, models.StatePaid, order.State)
}

func TestPaymentConfirmationRejectedPastPaid(t *testing.T) {
	for _, state := range []models.OrderState{
		models.StateInQueue, models.StateInProgress, models.StateReady,
		models.StateOnHold, models.StatePickedUp, models.StateCanceled, models.StateRefunded,
	} {
		order := orderIn(state)
		_, err := applyPaymentConfirmation(order, "", time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition, "confirmation from %s", state)
	}
}

func TestLoyaltyPointsFloorOfTotal(t *testing.T) {
	assert.Equal(t, 1, loyaltyPointsFor(1))
	assert.Equal(t, 1, loyaltyPointsFor(999))
	assert.Equal(t, 1, loyaltyPointsFor(1000))
	assert.Equal(t, 2, loyaltyPointsFor(2550))
	assert.Equal(t, 12, loyaltyPointsFor(12345))
}
