package services

import "errors"

var (
	// ErrValidation is returned when request input fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrShiftNotFound is returned when the referenced shift does not exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrShiftClosed is returned when an operation targets a checked-out shift.
	ErrShiftClosed = errors.New("shift is closed")

	// ErrShiftPaused is returned when customer ordering is attempted against
	// a paused shift.
	ErrShiftPaused = errors.New("shift is paused")

	// ErrInvalidTransition is returned when the requested state change is not
	// permitted from the order's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrOrderClosed is returned when a lifecycle mutation targets an order
	// in a terminal state.
	ErrOrderClosed = errors.New("order is in a terminal state")

	// ErrInsufficientStock is returned when an order line cannot be covered
	// by the tracked stock of its menu item.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrThrottled is returned when the shift's order admission window is full.
	ErrThrottled = errors.New("order throttle limit reached")

	// ErrInvalidCredentials is returned on a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrStaffNotFound is returned when the referenced staff member does not exist.
	ErrStaffNotFound = errors.New("staff member not found")

	// ErrNotFound is a generic not-found for catalog and admin entities.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on unique constraint conflicts surfaced to the API.
	ErrConflict = errors.New("conflict")

	// ErrInternalServer is returned for unexpected internal failures.
	ErrInternalServer = errors.New("internal server error")
)
