package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
)

// NotificationRepository defines the interface for the notification log.
type NotificationRepository interface {
	CreateLog(executor SQLExecutor, entry *models.NotificationLog) (int64, error)
	GetLogsByShift(shiftID int64, limit int) ([]models.NotificationLog, error)
}

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateLog(executor SQLExecutor, entry *models.NotificationLog) (int64, error) {
	query := `INSERT INTO notification_logs (shift_id, staff_id, device_id, channel, payload, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		entry.ShiftID, entry.StaffID, entry.DeviceID, entry.Channel,
		entry.Payload, entry.Status, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating notification log: %v", ErrDatabaseError, err)
	}
	return entry.ID, nil
}

func (r *notificationRepository) GetLogsByShift(shiftID int64, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, shift_id, staff_id, device_id, channel, payload, status, created_at
	          FROM notification_logs WHERE shift_id = $1
	          ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.db.Query(query, shiftID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: getting notification logs for shift %d: %v", ErrDatabaseError, shiftID, err)
	}
	defer rows.Close()

	logs := []models.NotificationLog{}
	for rows.Next() {
		var entry models.NotificationLog
		if err := rows.Scan(
			&entry.ID, &entry.ShiftID, &entry.StaffID, &entry.DeviceID,
			&entry.Channel, &entry.Payload, &entry.Status, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning notification log: %v", ErrDatabaseError, err)
		}
		logs = append(logs, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating notification logs: %v", ErrDatabaseError, err)
	}
	return logs, nil
}
