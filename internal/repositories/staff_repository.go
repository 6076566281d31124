package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"

	"github.com/lib/pq"
)

// StaffRepository defines the interface for staff and device persistence.
type StaffRepository interface {
	CreateStaff(executor SQLExecutor, staff *models.Staff) (int64, error)
	GetStaffByID(executor SQLExecutor, id int64) (*models.Staff, error)
	GetStaffByUsername(executor SQLExecutor, username string) (*models.Staff, error)
	GetStaffList() ([]models.Staff, error)
	GetStaffByTruck(truckID int64) ([]models.Staff, error)
	UpdateStaff(executor SQLExecutor, staff *models.Staff) error
	DeleteStaff(executor SQLExecutor, id int64) error

	RegisterDevice(executor SQLExecutor, device *models.Device) (int64, error)
	GetDevicesByStaff(staffID int64) ([]models.Device, error)
	GetActiveDevicesByStaff(executor SQLExecutor, staffID int64) ([]models.Device, error)
	TouchDevice(executor SQLExecutor, deviceID int64, seenAt time.Time) error
	RevokeDevice(executor SQLExecutor, deviceID, staffID int64, revokedAt time.Time) error
}

type staffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sql.DB) StaffRepository {
	return &staffRepository{db: db}
}

const staffColumns = `id, name, username, password_hash, role, truck_id, phone_number,
	preferred_notification_channel, email, created_at, updated_at`

func scanStaff(row interface{ Scan(...interface{}) error }) (*models.Staff, error) {
	s := &models.Staff{}
	if err := row.Scan(
		&s.ID, &s.Name, &s.Username, &s.PasswordHash, &s.Role, &s.TruckID, &s.PhoneNumber,
		&s.PreferredNotificationChannel, &s.Email, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *staffRepository) CreateStaff(executor SQLExecutor, staff *models.Staff) (int64, error) {
	if executor == nil {
		executor = r.db
	}
	query := `INSERT INTO staff
	          (name, username, password_hash, role, truck_id, phone_number,
	           preferred_notification_channel, email, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	          RETURNING id`
	err := executor.QueryRow(query,
		staff.Name, staff.Username, staff.PasswordHash, staff.Role, staff.TruckID,
		staff.PhoneNumber, staff.PreferredNotificationChannel, staff.Email,
	).Scan(&staff.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: username '%s' already exists", ErrDuplicateKey, staff.Username)
		}
		return 0, fmt.Errorf("%w: creating staff: %v", ErrDatabaseError, err)
	}
	return staff.ID, nil
}

func (r *staffRepository) GetStaffByID(executor SQLExecutor, id int64) (*models.Staff, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`
	staff, err := scanStaff(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting staff by ID %d: %v", ErrDatabaseError, id, err)
	}
	return staff, nil
}

func (r *staffRepository) GetStaffByUsername(executor SQLExecutor, username string) (*models.Staff, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + staffColumns + ` FROM staff WHERE username = $1`
	staff, err := scanStaff(executor.QueryRow(query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting staff by username: %v", ErrDatabaseError, err)
	}
	return staff, nil
}

func (r *staffRepository) GetStaffList() ([]models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting staff list: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	staffList := []models.Staff{}
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning staff: %v", ErrDatabaseError, err)
		}
		staffList = append(staffList, *staff)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating staff: %v", ErrDatabaseError, err)
	}
	return staffList, nil
}

func (r *staffRepository) GetStaffByTruck(truckID int64) ([]models.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE truck_id = $1 ORDER BY name`
	rows, err := r.db.Query(query, truckID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting staff for truck %d: %v", ErrDatabaseError, truckID, err)
	}
	defer rows.Close()

	staffList := []models.Staff{}
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning staff: %v", ErrDatabaseError, err)
		}
		staffList = append(staffList, *staff)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating staff: %v", ErrDatabaseError, err)
	}
	return staffList, nil
}

func (r *staffRepository) UpdateStaff(executor SQLExecutor, staff *models.Staff) error {
	if executor == nil {
		executor = r.db
	}
	query := `UPDATE staff SET
	            name = $1, username = $2, password_hash = $3, role = $4, truck_id = $5,
	            phone_number = $6, preferred_notification_channel = $7, email = $8, updated_at = NOW()
	          WHERE id = $9`
	result, err := executor.Exec(query,
		staff.Name, staff.Username, staff.PasswordHash, staff.Role, staff.TruckID,
		staff.PhoneNumber, staff.PreferredNotificationChannel, staff.Email, staff.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: username '%s' already exists", ErrDuplicateKey, staff.Username)
		}
		return fmt.Errorf("%w: updating staff ID %d: %v", ErrDatabaseError, staff.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *staffRepository) DeleteStaff(executor SQLExecutor, id int64) error {
	if executor == nil {
		executor = r.db
	}
	result, err := executor.Exec(`DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting staff ID %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Device methods ---

const deviceColumns = `id, staff_id, apns_token, platform, app_version, os_version,
	created_at, last_seen_at, revoked_at`

// RegisterDevice upserts on the APNs token so re-registration from the same
// device refreshes its metadata instead of duplicating the row.
func (r *staffRepository) RegisterDevice(executor SQLExecutor, device *models.Device) (int64, error) {
	query := `INSERT INTO devices (staff_id, apns_token, platform, app_version, os_version, created_at, last_seen_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          ON CONFLICT (apns_token) DO UPDATE SET
	            staff_id = EXCLUDED.staff_id,
	            platform = EXCLUDED.platform,
	            app_version = EXCLUDED.app_version,
	            os_version = EXCLUDED.os_version,
	            last_seen_at = NOW(),
	            revoked_at = NULL
	          RETURNING id`
	if executor == nil {
		executor = r.db
	}
	err := executor.QueryRow(query,
		device.StaffID, device.APNsToken, device.Platform, device.AppVersion, device.OSVersion,
	).Scan(&device.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: staff %d does not exist", ErrNotFound, device.StaffID)
		}
		return 0, fmt.Errorf("%w: registering device: %v", ErrDatabaseError, err)
	}
	return device.ID, nil
}

func (r *staffRepository) GetDevicesByStaff(staffID int64) ([]models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE staff_id = $1 ORDER BY created_at`
	return r.queryDevices(r.db, query, staffID)
}

func (r *staffRepository) GetActiveDevicesByStaff(executor SQLExecutor, staffID int64) ([]models.Device, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + deviceColumns + ` FROM devices
	          WHERE staff_id = $1 AND revoked_at IS NULL ORDER BY created_at`
	return r.queryDevices(executor, query, staffID)
}

func (r *staffRepository) queryDevices(executor SQLExecutor, query string, staffID int64) ([]models.Device, error) {
	rows, err := executor.Query(query, staffID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting devices for staff %d: %v", ErrDatabaseError, staffID, err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(
			&d.ID, &d.StaffID, &d.APNsToken, &d.Platform, &d.AppVersion, &d.OSVersion,
			&d.CreatedAt, &d.LastSeenAt, &d.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning device: %v", ErrDatabaseError, err)
		}
		devices = append(devices, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating devices: %v", ErrDatabaseError, err)
	}
	return devices, nil
}

func (r *staffRepository) TouchDevice(executor SQLExecutor, deviceID int64, seenAt time.Time) error {
	if executor == nil {
		executor = r.db
	}
	result, err := executor.Exec(`UPDATE devices SET last_seen_at = $1 WHERE id = $2`, seenAt, deviceID)
	if err != nil {
		return fmt.Errorf("%w: touching device ID %d: %v", ErrDatabaseError, deviceID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeDevice requires the owning staff ID so a staff member can only revoke
// their own devices.
func (r *staffRepository) RevokeDevice(executor SQLExecutor, deviceID, staffID int64, revokedAt time.Time) error {
	if executor == nil {
		executor = r.db
	}
	result, err := executor.Exec(
		`UPDATE devices SET revoked_at = $1 WHERE id = $2 AND staff_id = $3 AND revoked_at IS NULL`,
		revokedAt, deviceID, staffID,
	)
	if err != nil {
		return fmt.Errorf("%w: revoking device ID %d: %v", ErrDatabaseError, deviceID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
