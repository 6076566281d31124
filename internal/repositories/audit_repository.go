package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
)

// AuditRepository defines the interface for the append-only audit trail.
type AuditRepository interface {
	CreateEntry(executor SQLExecutor, entry *models.AuditLog) (int64, error)
	GetEntries(entityType string, entityID *int64, limit int) ([]models.AuditLog, error)
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) CreateEntry(executor SQLExecutor, entry *models.AuditLog) (int64, error) {
	query := `INSERT INTO audit_logs (staff_id, action, entity_type, entity_id, metadata_json, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.MetadataJSON == "" {
		entry.MetadataJSON = "{}"
	}
	err := executor.QueryRow(query,
		entry.StaffID, entry.Action, entry.EntityType, entry.EntityID,
		entry.MetadataJSON, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating audit log entry: %v", ErrDatabaseError, err)
	}
	return entry.ID, nil
}

func (r *auditRepository) GetEntries(entityType string, entityID *int64, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, staff_id, action, entity_type, entity_id, metadata_json, created_at
	          FROM audit_logs WHERE 1=1`
	args := []interface{}{}
	if entityType != "" {
		args = append(args, entityType)
		query += fmt.Sprintf(` AND entity_type = $%d`, len(args))
	}
	if entityID != nil {
		args = append(args, *entityID)
		query += fmt.Sprintf(` AND entity_id = $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting audit log entries: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	entries := []models.AuditLog{}
	for rows.Next() {
		var entry models.AuditLog
		if err := rows.Scan(
			&entry.ID, &entry.StaffID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &entry.MetadataJSON, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning audit log entry: %v", ErrDatabaseError, err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating audit log entries: %v", ErrDatabaseError, err)
	}
	return entries, nil
}
