package models

import "time"

// ShiftStatus enumerates the states of a truck's operating session.
type ShiftStatus string

const (
	ShiftCheckedIn  ShiftStatus = "CHECKED_IN"
	ShiftPaused     ShiftStatus = "PAUSED"
	ShiftCheckedOut ShiftStatus = "CHECKED_OUT"
)

// TruckShift is a truck's bounded operating session at one location.
// All orders and per-shift menu/stock state are scoped to a shift.
type TruckShift struct {
	ID                int64       `json:"id" db:"id"`
	TruckID           int64       `json:"truck_id" db:"truck_id"`
	LocationID        int64       `json:"location_id" db:"location_id"`
	Status            ShiftStatus `json:"status" db:"status"`
	StartsAt          time.Time   `json:"starts_at" db:"starts_at"`
	EndsAt            *time.Time  `json:"ends_at,omitempty" db:"ends_at"`
	ResumeAt          *time.Time  `json:"resume_at,omitempty" db:"resume_at"`
	ThrottlePer5Min   int         `json:"throttle_per_5m" db:"throttle_per_5m"`
	SlotCapacityPerMin int        `json:"slot_capacity_per_min" db:"slot_capacity_per_min"`
	Notes             string      `json:"notes" db:"notes"`
	Lat               float64     `json:"lat" db:"lat"`
	Lon               float64     `json:"lon" db:"lon"`
}
