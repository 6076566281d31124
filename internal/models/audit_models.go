package models

import "time"

// AuditLog records one staff mutation for the admin audit trail.
type AuditLog struct {
	ID           int64     `json:"id" db:"id"`
	StaffID      *int64    `json:"staff_id,omitempty" db:"staff_id"`
	Action       string    `json:"action" db:"action"`
	EntityType   string    `json:"entity_type" db:"entity_type"`
	EntityID     *int64    `json:"entity_id,omitempty" db:"entity_id"`
	MetadataJSON string    `json:"metadata_json" db:"metadata_json"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
