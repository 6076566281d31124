package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
)

// --- DTOs ---

// CheckInRequest opens a new shift for a truck at a location.
type CheckInRequest struct {
	TruckID            int64   `json:"truck_id" binding:"required"`
	LocationID         int64   `json:"location_id" binding:"required"`
	ThrottlePer5Min    int     `json:"throttle_per_5m"`
	SlotCapacityPerMin int     `json:"slot_capacity_per_min"`
	Notes              string  `json:"notes"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
}

// PauseRequest optionally tells customers when ordering comes back.
type PauseRequest struct {
	ResumeAt *time.Time `json:"resume_at"`
}

// ShiftConfigRequest tunes a running shift. Nil fields are left untouched.
type ShiftConfigRequest struct {
	ThrottlePer5Min    *int    `json:"throttle_per_5m"`
	SlotCapacityPerMin *int    `json:"slot_capacity_per_min"`
	Notes              *string `json:"notes"`
}

// --- ShiftService Interface ---

type ShiftService interface {
	CheckIn(req CheckInRequest, staffID *int64) (*models.TruckShift, error)
	Checkout(shiftID int64, staffID *int64) (*models.TruckShift, error)
	Pause(shiftID int64, req PauseRequest, staffID *int64) (*models.TruckShift, error)
	Resume(shiftID int64, staffID *int64) (*models.TruckShift, error)
	UpdateConfig(shiftID int64, req ShiftConfigRequest, staffID *int64) (*models.TruckShift, error)
	GetShiftByID(shiftID int64) (*models.TruckShift, error)
	GetActiveShiftForTruck(truckID int64) (*models.TruckShift, error)
	GetOpenShifts() ([]models.TruckShift, error)
}

type shiftService struct {
	shiftRepo repositories.ShiftRepository
	auditRepo repositories.AuditRepository
	events    EventSink
	db        *sql.DB
}

// NewShiftService creates a new instance of ShiftService.
func NewShiftService(
	sr repositories.ShiftRepository,
	ar repositories.AuditRepository,
	events EventSink,
	db *sql.DB,
) ShiftService {
	return &shiftService{
		shiftRepo: sr,
		auditRepo: ar,
		events:    events,
		db:        db,
	}
}

func (s *shiftService) audit(tx repositories.SQLExecutor, staffID *int64, action string, shiftID int64, meta map[string]interface{}) error {
	raw, _ := json.Marshal(meta)
	entry := models.AuditLog{
		StaffID:      staffID,
		Action:       action,
		EntityType:   "shift",
		EntityID:     &shiftID,
		MetadataJSON: string(raw),
	}
	_, err := s.auditRepo.CreateEntry(tx, &entry)
	return err
}

func (s *shiftService) CheckIn(req CheckInRequest, staffID *int64) (*models.TruckShift, error) {
	if req.ThrottlePer5Min < 0 || req.SlotCapacityPerMin < 0 {
		return nil, fmt.Errorf("%w: capacity values must not be negative", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := s.shiftRepo.GetActiveShiftForTruck(tx, req.TruckID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check active shift: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: truck %d already has an open shift (%d)", ErrConflict, req.TruckID, existing.ID)
	}

	shift := &models.TruckShift{
		TruckID:            req.TruckID,
		LocationID:         req.LocationID,
		Status:             models.ShiftCheckedIn,
		StartsAt:           time.Now(),
		ThrottlePer5Min:    req.ThrottlePer5Min,
		SlotCapacityPerMin: req.SlotCapacityPerMin,
		Notes:              req.Notes,
		Lat:                req.Lat,
		Lon:                req.Lon,
	}
	if _, err := s.shiftRepo.CreateShift(tx, shift); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: truck or location does not exist", ErrValidation)
		}
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}
	if err := s.audit(tx, staffID, "shift.check_in", shift.ID, map[string]interface{}{
		"truck_id":    req.TruckID,
		"location_id": req.LocationID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check-in transaction: %w", err)
	}
	return shift, nil
}

// mutateShift loads, mutates and persists a shift plus its audit entry in
// one transaction.
func (s *shiftService) mutateShift(
	shiftID int64,
	staffID *int64,
	action string,
	meta map[string]interface{},
	apply func(shift *models.TruckShift) error,
) (*models.TruckShift, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	shift, err := s.shiftRepo.GetShiftByID(tx, shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to fetch shift %d: %w", shiftID, err)
	}
	if err := apply(shift); err != nil {
		return nil, err
	}
	if err := s.shiftRepo.UpdateShift(tx, shift); err != nil {
		return nil, fmt.Errorf("failed to persist shift %d: %w", shiftID, err)
	}
	if err := s.audit(tx, staffID, action, shiftID, meta); err != nil {
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shift transaction: %w", err)
	}
	return shift, nil
}

func (s *shiftService) Checkout(shiftID int64, staffID *int64) (*models.TruckShift, error) {
	return s.mutateShift(shiftID, staffID, "shift.checkout", nil, func(shift *models.TruckShift) error {
		if shift.Status == models.ShiftCheckedOut {
			return ErrShiftClosed
		}
		now := time.Now()
		shift.Status = models.ShiftCheckedOut
		shift.EndsAt = &now
		shift.ResumeAt = nil
		return nil
	})
}

func (s *shiftService) Pause(shiftID int64, req PauseRequest, staffID *int64) (*models.TruckShift, error) {
	shift, err := s.mutateShift(shiftID, staffID, "shift.pause", nil, func(shift *models.TruckShift) error {
		if shift.Status == models.ShiftCheckedOut {
			return ErrShiftClosed
		}
		shift.Status = models.ShiftPaused
		shift.ResumeAt = req.ResumeAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := map[string]interface{}{"event": "pause", "shift_id": shift.ID}
	if shift.ResumeAt != nil {
		event["resume_at"] = shift.ResumeAt
	}
	s.events.Broadcast(shift.ID, event)
	return shift, nil
}

func (s *shiftService) Resume(shiftID int64, staffID *int64) (*models.TruckShift, error) {
	shift, err := s.mutateShift(shiftID, staffID, "shift.resume", nil, func(shift *models.TruckShift) error {
		if shift.Status == models.ShiftCheckedOut {
			return ErrShiftClosed
		}
		shift.Status = models.ShiftCheckedIn
		shift.ResumeAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(shift.ID, map[string]interface{}{"event": "resume", "shift_id": shift.ID})
	return shift, nil
}

func (s *shiftService) UpdateConfig(shiftID int64, req ShiftConfigRequest, staffID *int64) (*models.TruckShift, error) {
	meta := map[string]interface{}{}
	shift, err := s.mutateShift(shiftID, staffID, "shift.config", meta, func(shift *models.TruckShift) error {
		if shift.Status == models.ShiftCheckedOut {
			return ErrShiftClosed
		}
		if req.ThrottlePer5Min != nil {
			if *req.ThrottlePer5Min < 0 {
				return fmt.Errorf("%w: throttle must not be negative", ErrValidation)
			}
			shift.ThrottlePer5Min = *req.ThrottlePer5Min
			meta["throttle_per_5m"] = *req.ThrottlePer5Min
		}
		if req.SlotCapacityPerMin != nil {
			if *req.SlotCapacityPerMin < 0 {
				return fmt.Errorf("%w: slot capacity must not be negative", ErrValidation)
			}
			shift.SlotCapacityPerMin = *req.SlotCapacityPerMin
			meta["slot_capacity_per_min"] = *req.SlotCapacityPerMin
		}
		if req.Notes != nil {
			shift.Notes = *req.Notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Broadcast(shift.ID, map[string]interface{}{
		"event":    "config_updated",
		"shift_id": shift.ID,
	})
	return shift, nil
}

func (s *shiftService) GetShiftByID(shiftID int64) (*models.TruckShift, error) {
	shift, err := s.shiftRepo.GetShiftByID(nil, shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to get shift %d: %w", shiftID, err)
	}
	return shift, nil
}

func (s *shiftService) GetActiveShiftForTruck(truckID int64) (*models.TruckShift, error) {
	shift, err := s.shiftRepo.GetActiveShiftForTruck(nil, truckID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to get active shift for truck %d: %w", truckID, err)
	}
	return shift, nil
}

func (s *shiftService) GetOpenShifts() ([]models.TruckShift, error) {
	shifts, err := s.shiftRepo.GetOpenShifts()
	if err != nil {
		return nil, fmt.Errorf("failed to get open shifts: %w", err)
	}
	return shifts, nil
}
