package models

import "time"

// Notification delivery statuses.
const (
	NotificationQueued  = "queued"
	NotificationSkipped = "skipped"
)

// NotificationLog is one queued push/SMS notification awaiting delivery
// by the out-of-process delivery workers.
type NotificationLog struct {
	ID        int64     `json:"id" db:"id"`
	ShiftID   *int64    `json:"shift_id,omitempty" db:"shift_id"`
	StaffID   *int64    `json:"staff_id,omitempty" db:"staff_id"`
	DeviceID  *int64    `json:"device_id,omitempty" db:"device_id"`
	Channel   string    `json:"channel" db:"channel"`
	Payload   string    `json:"payload" db:"payload"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
