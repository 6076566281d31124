package models

import "time"

// Truck is a food truck in the fleet.
type Truck struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name" binding:"required"`
	Capacity         int       `json:"capacity" db:"capacity"`
	TZ               string    `json:"tz" db:"tz"`
	Active           bool      `json:"active" db:"active"`
	OperationalNotes string    `json:"operational_notes" db:"operational_notes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// OperatingHour is one weekly open/close window for a truck.
type OperatingHour struct {
	ID        int64  `json:"id" db:"id"`
	TruckID   int64  `json:"truck_id" db:"truck_id"`
	DayOfWeek int    `json:"day_of_week" db:"day_of_week"`
	OpensAt   string `json:"opens_at" db:"opens_at"`   // HH:MM:SS
	ClosesAt  string `json:"closes_at" db:"closes_at"` // HH:MM:SS
}

// Location is a known parking spot a truck can check in at.
type Location struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name" binding:"required"`
	Address        string    `json:"address" db:"address"`
	Lat            float64   `json:"lat" db:"lat"`
	Lon            float64   `json:"lon" db:"lon"`
	TaxRegion      string    `json:"tax_region" db:"tax_region"`
	GeofenceMeters int       `json:"geofence_m" db:"geofence_m"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
