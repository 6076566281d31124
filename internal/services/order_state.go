package services

import (
	"fmt"
	"time"

	"fusionx_backend/internal/models"
)

// allowedAdvances is the authoritative forward-transition table of the order
// lifecycle. An advance succeeds iff the target appears under the order's
// current state. NEW is absent on purpose: the only exit from NEW is the
// payment confirmation path.
var allowedAdvances = map[models.OrderState][]models.OrderState{
	models.StatePaid:       {models.StateInQueue, models.StateInProgress},
	models.StateInQueue:    {models.StateInProgress, models.StateOnHold},
	models.StateInProgress: {models.StateReady, models.StateOnHold},
	models.StateOnHold:     {models.StateInProgress, models.StateInQueue},
	models.StateReady:      {models.StatePickedUp},
}

// holdCapable lists the states an order can be put on hold from.
var holdCapable = map[models.OrderState]bool{
	models.StateInQueue:    true,
	models.StateInProgress: true,
}

// defaultHoldMinutes is the hold duration used when the caller gives none.
const defaultHoldMinutes = 15

func canAdvance(from, to models.OrderState) bool {
	for _, target := range allowedAdvances[from] {
		if target == to {
			return true
		}
	}
	return false
}

// applyAdvance moves the order to target. READY stamps prep completion;
// leaving ON_HOLD clears the hold fields. previous_state is recorded only
// when entering ON_HOLD so a later resume knows where to return to.
func applyAdvance(order *models.Order, target models.OrderState, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrValidation, string(target))
	}
	if order.State.Terminal() {
		return fmt.Errorf("%w: order %d is %s", ErrOrderClosed, order.ID, order.State)
	}
	if !canAdvance(order.State, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.State, target)
	}

	prev := order.State
	order.State = target
	order.LastStateChangeAt = now

	if target == models.StateOnHold {
		order.PreviousState = &prev
	} else {
		order.PreviousState = nil
	}
	if target == models.StateReady {
		order.PrepCompletedAt = &now
	}
	if prev == models.StateOnHold {
		order.OnHoldUntil = nil
		order.HoldReason = nil
	}
	return nil
}

// applyHold parks an order that is waiting or being prepared for the given
// number of minutes. The prior state is retained so a resume can put the
// order back where it was.
func applyHold(order *models.Order, reason string, minutes int, now time.Time) error {
	if order.State.Terminal() {
		return fmt.Errorf("%w: order %d is %s", ErrOrderClosed, order.ID, order.State)
	}
	if !holdCapable[order.State] {
		return fmt.Errorf("%w: cannot hold from %s", ErrInvalidTransition, order.State)
	}
	if minutes < 1 {
		return fmt.Errorf("%w: hold minutes must be at least 1", ErrValidation)
	}

	prev := order.State
	order.PreviousState = &prev
	order.State = models.StateOnHold
	order.LastStateChangeAt = now
	until := now.Add(time.Duration(minutes) * time.Minute)
	order.OnHoldUntil = &until
	if reason != "" {
		order.HoldReason = &reason
	} else {
		order.HoldReason = nil
	}
	return nil
}

// applyResume returns a held order to its pre-hold state, defaulting to
// IN_QUEUE when the prior state was never recorded. previous_state only
// carries meaning while the order sits in ON_HOLD, so resume clears it.
func applyResume(order *models.Order, now time.Time) error {
	if order.State != models.StateOnHold {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, order.State)
	}

	target := models.StateInQueue
	if order.PreviousState != nil && holdCapable[*order.PreviousState] {
		target = *order.PreviousState
	}

	order.PreviousState = nil
	order.State = target
	order.LastStateChangeAt = now
	order.OnHoldUntil = nil
	order.HoldReason = nil
	return nil
}

// applyCancel terminates an order before pickup. Every cancel stamps the
// cancellation fields; with refund set the order lands in REFUNDED and the
// refund fields are stamped on top. Picked-up and already-terminated orders
// cannot be canceled.
func applyCancel(order *models.Order, reason string, refund bool, refundReason string, now time.Time) error {
	if order.State == models.StatePickedUp || order.State.Terminal() {
		return fmt.Errorf("%w: cannot cancel from %s", ErrOrderClosed, order.State)
	}

	order.PreviousState = nil
	order.LastStateChangeAt = now
	order.OnHoldUntil = nil
	order.HoldReason = nil

	order.CanceledAt = &now
	if reason != "" {
		order.CancellationReason = &reason
	}

	if refund {
		order.State = models.StateRefunded
		order.RefundedAt = &now
		if refundReason != "" {
			order.RefundReason = &refundReason
		}
	} else {
		order.State = models.StateCanceled
	}
	return nil
}

// applyPaymentConfirmation moves a NEW order to PAID. Idempotent by design:
// confirming an already-PAID order is a no-op and the caller must not repeat
// side effects.
func applyPaymentConfirmation(order *models.Order, paymentRef string, now time.Time) (first bool, err error) {
	switch order.State {
	case models.StateNew:
		order.State = models.StatePaid
		order.LastStateChangeAt = now
		if paymentRef != "" {
			order.PaymentReference = &paymentRef
		}
		return true, nil
	case models.StatePaid:
		return false, nil
	default:
		return false, fmt.Errorf("%w: payment confirmation for order in %s", ErrInvalidTransition, order.State)
	}
}

// loyaltyPointsFor computes the points awarded for a confirmed order:
// one point per full 10 currency units, never less than one.
func loyaltyPointsFor(totalCents int64) int {
	points := int(totalCents / 1000)
	if points < 1 {
		points = 1
	}
	return points
}
