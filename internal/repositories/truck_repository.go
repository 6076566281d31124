package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"fusionx_backend/internal/models"

	"github.com/lib/pq"
)

// TruckRepository defines the interface for trucks, locations and operating hours.
type TruckRepository interface {
	CreateTruck(executor SQLExecutor, truck *models.Truck) (int64, error)
	GetTruckByID(executor SQLExecutor, id int64) (*models.Truck, error)
	GetTrucks(activeOnly bool) ([]models.Truck, error)
	UpdateTruck(executor SQLExecutor, truck *models.Truck) error

	CreateLocation(executor SQLExecutor, location *models.Location) (int64, error)
	GetLocationByID(executor SQLExecutor, id int64) (*models.Location, error)
	GetLocations() ([]models.Location, error)
	UpdateLocation(executor SQLExecutor, location *models.Location) error

	ReplaceOperatingHours(executor SQLExecutor, truckID int64, hours []models.OperatingHour) error
	GetOperatingHours(truckID int64) ([]models.OperatingHour, error)
}

type truckRepository struct {
	db *sql.DB
}

// NewTruckRepository creates a new instance of TruckRepository.
func NewTruckRepository(db *sql.DB) TruckRepository {
	return &truckRepository{db: db}
}

const truckColumns = `id, name, capacity, tz, active, operational_notes, created_at, updated_at`

func (r *truckRepository) CreateTruck(executor SQLExecutor, truck *models.Truck) (int64, error) {
	query := `INSERT INTO trucks (name, capacity, tz, active, operational_notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          RETURNING id`
	err := executor.QueryRow(query,
		truck.Name, truck.Capacity, truck.TZ, truck.Active, truck.OperationalNotes,
	).Scan(&truck.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: truck name '%s' already exists", ErrDuplicateKey, truck.Name)
		}
		return 0, fmt.Errorf("%w: creating truck: %v", ErrDatabaseError, err)
	}
	return truck.ID, nil
}

func (r *truckRepository) GetTruckByID(executor SQLExecutor, id int64) (*models.Truck, error) {
	if executor == nil {
		executor = r.db
	}
	truck := &models.Truck{}
	query := `SELECT ` + truckColumns + ` FROM trucks WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&truck.ID, &truck.Name, &truck.Capacity, &truck.TZ, &truck.Active,
		&truck.OperationalNotes, &truck.CreatedAt, &truck.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting truck by ID %d: %v", ErrDatabaseError, id, err)
	}
	return truck, nil
}

func (r *truckRepository) GetTrucks(activeOnly bool) ([]models.Truck, error) {
	query := `SELECT ` + truckColumns + ` FROM trucks`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting trucks: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	trucks := []models.Truck{}
	for rows.Next() {
		var truck models.Truck
		if err := rows.Scan(
			&truck.ID, &truck.Name, &truck.Capacity, &truck.TZ, &truck.Active,
			&truck.OperationalNotes, &truck.CreatedAt, &truck.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning truck: %v", ErrDatabaseError, err)
		}
		trucks = append(trucks, truck)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating trucks: %v", ErrDatabaseError, err)
	}
	return trucks, nil
}

func (r *truckRepository) UpdateTruck(executor SQLExecutor, truck *models.Truck) error {
	query := `UPDATE trucks SET
	            name = $1, capacity = $2, tz = $3, active = $4, operational_notes = $5, updated_at = NOW()
	          WHERE id = $6`
	result, err := executor.Exec(query,
		truck.Name, truck.Capacity, truck.TZ, truck.Active, truck.OperationalNotes, truck.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating truck ID %d: %v", ErrDatabaseError, truck.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Location methods ---

const locationColumns = `id, name, address, lat, lon, tax_region, geofence_m, created_at, updated_at`

func (r *truckRepository) CreateLocation(executor SQLExecutor, location *models.Location) (int64, error) {
	query := `INSERT INTO locations (name, address, lat, lon, tax_region, geofence_m, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	          RETURNING id`
	err := executor.QueryRow(query,
		location.Name, location.Address, location.Lat, location.Lon,
		location.TaxRegion, location.GeofenceMeters,
	).Scan(&location.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating location: %v", ErrDatabaseError, err)
	}
	return location.ID, nil
}

func (r *truckRepository) GetLocationByID(executor SQLExecutor, id int64) (*models.Location, error) {
	if executor == nil {
		executor = r.db
	}
	location := &models.Location{}
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	err := executor.QueryRow(query, id).Scan(
		&location.ID, &location.Name, &location.Address, &location.Lat, &location.Lon,
		&location.TaxRegion, &location.GeofenceMeters, &location.CreatedAt, &location.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting location by ID %d: %v", ErrDatabaseError, id, err)
	}
	return location, nil
}

func (r *truckRepository) GetLocations() ([]models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: getting locations: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var location models.Location
		if err := rows.Scan(
			&location.ID, &location.Name, &location.Address, &location.Lat, &location.Lon,
			&location.TaxRegion, &location.GeofenceMeters, &location.CreatedAt, &location.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning location: %v", ErrDatabaseError, err)
		}
		locations = append(locations, location)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating locations: %v", ErrDatabaseError, err)
	}
	return locations, nil
}

func (r *truckRepository) UpdateLocation(executor SQLExecutor, location *models.Location) error {
	query := `UPDATE locations SET
	            name = $1, address = $2, lat = $3, lon = $4, tax_region = $5,
	            geofence_m = $6, updated_at = NOW()
	          WHERE id = $7`
	result, err := executor.Exec(query,
		location.Name, location.Address, location.Lat, location.Lon,
		location.TaxRegion, location.GeofenceMeters, location.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating location ID %d: %v", ErrDatabaseError, location.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Operating hours ---

// ReplaceOperatingHours swaps a truck's full weekly schedule in one shot.
// Callers are expected to run this inside a transaction.
func (r *truckRepository) ReplaceOperatingHours(executor SQLExecutor, truckID int64, hours []models.OperatingHour) error {
	if _, err := executor.Exec(`DELETE FROM operating_hours WHERE truck_id = $1`, truckID); err != nil {
		return fmt.Errorf("%w: clearing operating hours for truck %d: %v", ErrDatabaseError, truckID, err)
	}
	query := `INSERT INTO operating_hours (truck_id, day_of_week, opens_at, closes_at)
	          VALUES ($1, $2, $3, $4)`
	for _, h := range hours {
		if _, err := executor.Exec(query, truckID, h.DayOfWeek, h.OpensAt, h.ClosesAt); err != nil {
			return fmt.Errorf("%w: inserting operating hour for truck %d: %v", ErrDatabaseError, truckID, err)
		}
	}
	return nil
}

func (r *truckRepository) GetOperatingHours(truckID int64) ([]models.OperatingHour, error) {
	query := `SELECT id, truck_id, day_of_week, opens_at, closes_at
	          FROM operating_hours WHERE truck_id = $1 ORDER BY day_of_week, opens_at`
	rows, err := r.db.Query(query, truckID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting operating hours for truck %d: %v", ErrDatabaseError, truckID, err)
	}
	defer rows.Close()

	hours := []models.OperatingHour{}
	for rows.Next() {
		var h models.OperatingHour
		if err := rows.Scan(&h.ID, &h.TruckID, &h.DayOfWeek, &h.OpensAt, &h.ClosesAt); err != nil {
			return nil, fmt.Errorf("%w: scanning operating hour: %v", ErrDatabaseError, err)
		}
		hours = append(hours, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating operating hours: %v", ErrDatabaseError, err)
	}
	return hours, nil
}
