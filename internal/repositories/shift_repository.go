package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"fusionx_backend/internal/models"

	"github.com/lib/pq"
)

// ShiftRepository defines the interface for truck shift persistence.
type ShiftRepository interface {
	CreateShift(executor SQLExecutor, shift *models.TruckShift) (int64, error)
	GetShiftByID(executor SQLExecutor, id int64) (*models.TruckShift, error)
	GetActiveShiftForTruck(executor SQLExecutor, truckID int64) (*models.TruckShift, error)
	GetOpenShifts() ([]models.TruckShift, error)
	UpdateShift(executor SQLExecutor, shift *models.TruckShift) error
}

type shiftRepository struct {
	db *sql.DB
}

// NewShiftRepository creates a new instance of ShiftRepository.
func NewShiftRepository(db *sql.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

const shiftColumns = `id, truck_id, location_id, status, starts_at, ends_at, resume_at,
	throttle_per_5m, slot_capacity_per_min, notes, lat, lon`

func scanShift(row interface{ Scan(...interface{}) error }) (*models.TruckShift, error) {
	s := &models.TruckShift{}
	if err := row.Scan(
		&s.ID, &s.TruckID, &s.LocationID, &s.Status, &s.StartsAt, &s.EndsAt, &s.ResumeAt,
		&s.ThrottlePer5Min, &s.SlotCapacityPerMin, &s.Notes, &s.Lat, &s.Lon,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *shiftRepository) CreateShift(executor SQLExecutor, shift *models.TruckShift) (int64, error) {
	query := `INSERT INTO truck_shifts
	          (truck_id, location_id, status, starts_at, throttle_per_5m, slot_capacity_per_min, notes, lat, lon)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	err := executor.QueryRow(query,
		shift.TruckID, shift.LocationID, string(shift.Status), shift.StartsAt,
		shift.ThrottlePer5Min, shift.SlotCapacityPerMin, shift.Notes, shift.Lat, shift.Lon,
	).Scan(&shift.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return 0, fmt.Errorf("%w: truck or location does not exist", ErrNotFound)
		}
		return 0, fmt.Errorf("%w: creating shift: %v", ErrDatabaseError, err)
	}
	return shift.ID, nil
}

func (r *shiftRepository) GetShiftByID(executor SQLExecutor, id int64) (*models.TruckShift, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + shiftColumns + ` FROM truck_shifts WHERE id = $1`
	shift, err := scanShift(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting shift by ID %d: %v", ErrDatabaseError, id, err)
	}
	return shift, nil
}

// GetActiveShiftForTruck returns the truck's most recent shift that has not
// been checked out. A paused shift still counts as active.
func (r *shiftRepository) GetActiveShiftForTruck(executor SQLExecutor, truckID int64) (*models.TruckShift, error) {
	if executor == nil {
		executor = r.db
	}
	query := `SELECT ` + shiftColumns + ` FROM truck_shifts
	          WHERE truck_id = $1 AND status != $2
	          ORDER BY starts_at DESC LIMIT 1`
	shift, err := scanShift(executor.QueryRow(query, truckID, string(models.ShiftCheckedOut)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting active shift for truck %d: %v", ErrDatabaseError, truckID, err)
	}
	return shift, nil
}

func (r *shiftRepository) GetOpenShifts() ([]models.TruckShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM truck_shifts
	          WHERE status != $1 ORDER BY starts_at DESC`
	rows, err := r.db.Query(query, string(models.ShiftCheckedOut))
	if err != nil {
		return nil, fmt.Errorf("%w: getting open shifts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	shifts := []models.TruckShift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning shift: %v", ErrDatabaseError, err)
		}
		shifts = append(shifts, *shift)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating shifts: %v", ErrDatabaseError, err)
	}
	return shifts, nil
}

func (r *shiftRepository) UpdateShift(executor SQLExecutor, shift *models.TruckShift) error {
	query := `UPDATE truck_shifts SET
	            status = $1, ends_at = $2, resume_at = $3, throttle_per_5m = $4,
	            slot_capacity_per_min = $5, notes = $6, lat = $7, lon = $8
	          WHERE id = $9`
	result, err := executor.Exec(query,
		string(shift.Status), shift.EndsAt, shift.ResumeAt, shift.ThrottlePer5Min,
		shift.SlotCapacityPerMin, shift.Notes, shift.Lat, shift.Lon, shift.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating shift ID %d: %v", ErrDatabaseError, shift.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
