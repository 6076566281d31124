package services

import (
	"database/sql"
	"errors"
	"fmt"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
)

// --- DTOs ---

// OperatingHourInput is one weekly open/close window.
type OperatingHourInput struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=0,max=6"`
	OpensAt   string `json:"opens_at" binding:"required"`
	ClosesAt  string `json:"closes_at" binding:"required"`
}

// SetOperatingHoursRequest replaces a truck's weekly schedule.
type SetOperatingHoursRequest struct {
	Hours []OperatingHourInput `json:"hours" binding:"required,dive"`
}

// --- TruckService Interface ---

type TruckService interface {
	CreateTruck(truck *models.Truck) error
	GetTruckByID(id int64) (*models.Truck, error)
	GetTrucks(activeOnly bool) ([]models.Truck, error)
	UpdateTruck(truck *models.Truck) error

	CreateLocation(location *models.Location) error
	GetLocationByID(id int64) (*models.Location, error)
	GetLocations() ([]models.Location, error)
	UpdateLocation(location *models.Location) error

	SetOperatingHours(truckID int64, req SetOperatingHoursRequest) ([]models.OperatingHour, error)
	GetOperatingHours(truckID int64) ([]models.OperatingHour, error)

	GetAuditTrail(entityType string, entityID *int64, limit int) ([]models.AuditLog, error)
}

type truckService struct {
	truckRepo repositories.TruckRepository
	auditRepo repositories.AuditRepository
	db        *sql.DB
}

// NewTruckService creates a new instance of TruckService.
func NewTruckService(tr repositories.TruckRepository, ar repositories.AuditRepository, db *sql.DB) TruckService {
	return &truckService{truckRepo: tr, auditRepo: ar, db: db}
}

func (s *truckService) CreateTruck(truck *models.Truck) error {
	if _, err := s.truckRepo.CreateTruck(s.db, truck); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return fmt.Errorf("failed to create truck: %w", err)
	}
	return nil
}

func (s *truckService) GetTruckByID(id int64) (*models.Truck, error) {
	truck, err := s.truckRepo.GetTruckByID(nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get truck %d: %w", id, err)
	}
	return truck, nil
}

func (s *truckService) GetTrucks(activeOnly bool) ([]models.Truck, error) {
	trucks, err := s.truckRepo.GetTrucks(activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to get trucks: %w", err)
	}
	return trucks, nil
}

func (s *truckService) UpdateTruck(truck *models.Truck) error {
	if err := s.truckRepo.UpdateTruck(s.db, truck); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update truck %d: %w", truck.ID, err)
	}
	return nil
}

func (s *truckService) CreateLocation(location *models.Location) error {
	if _, err := s.truckRepo.CreateLocation(s.db, location); err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

func (s *truckService) GetLocationByID(id int64) (*models.Location, error) {
	location, err := s.truckRepo.GetLocationByID(nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get location %d: %w", id, err)
	}
	return location, nil
}

func (s *truckService) GetLocations() ([]models.Location, error) {
	locations, err := s.truckRepo.GetLocations()
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	return locations, nil
}

func (s *truckService) UpdateLocation(location *models.Location) error {
	if err := s.truckRepo.UpdateLocation(s.db, location); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update location %d: %w", location.ID, err)
	}
	return nil
}

func (s *truckService) SetOperatingHours(truckID int64, req SetOperatingHoursRequest) ([]models.OperatingHour, error) {
	for _, h := range req.Hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			return nil, fmt.Errorf("%w: day_of_week must be 0-6", ErrValidation)
		}
		if h.OpensAt >= h.ClosesAt {
			return nil, fmt.Errorf("%w: opens_at must precede closes_at", ErrValidation)
		}
	}

	if _, err := s.truckRepo.GetTruckByID(nil, truckID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get truck %d: %w", truckID, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	hours := make([]models.OperatingHour, 0, len(req.Hours))
	for _, h := range req.Hours {
		hours = append(hours, models.OperatingHour{
			TruckID:   truckID,
			DayOfWeek: h.DayOfWeek,
			OpensAt:   h.OpensAt,
			ClosesAt:  h.ClosesAt,
		})
	}
	if err := s.truckRepo.ReplaceOperatingHours(tx, truckID, hours); err != nil {
		return nil, fmt.Errorf("failed to replace operating hours: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit operating hours transaction: %w", err)
	}
	return s.truckRepo.GetOperatingHours(truckID)
}

func (s *truckService) GetOperatingHours(truckID int64) ([]models.OperatingHour, error) {
	hours, err := s.truckRepo.GetOperatingHours(truckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get operating hours for truck %d: %w", truckID, err)
	}
	return hours, nil
}

func (s *truckService) GetAuditTrail(entityType string, entityID *int64, limit int) ([]models.AuditLog, error) {
	entries, err := s.auditRepo.GetEntries(entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}
	return entries, nil
}
