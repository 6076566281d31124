package services

import (
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

// CreateStaffRequest registers a new staff member.
type CreateStaffRequest struct {
	Name                         string  `json:"name" binding:"required"`
	Username                     string  `json:"username" binding:"required"`
	Password                     string  `json:"password" binding:"required,min=8"`
	Role                         string  `json:"role" binding:"required"`
	TruckID                      *int64  `json:"truck_id"`
	PhoneNumber                  *string `json:"phone_number"`
	PreferredNotificationChannel string  `json:"preferred_notification_channel"`
	Email                        *string `json:"email"`
}

// UpdateStaffRequest edits an existing staff member. Nil fields are left
// untouched; a non-nil Password is re-hashed.
type UpdateStaffRequest struct {
	Name                         *string `json:"name"`
	Password                     *string `json:"password"`
	Role                         *string `json:"role"`
	TruckID                      *int64  `json:"truck_id"`
	PhoneNumber                  *string `json:"phone_number"`
	PreferredNotificationChannel *string `json:"preferred_notification_channel"`
	Email                        *string `json:"email"`
}

// RegisterDeviceRequest registers a push-capable mobile device.
type RegisterDeviceRequest struct {
	APNsToken  string `json:"apns_token" binding:"required"`
	Platform   string `json:"platform" binding:"required"`
	AppVersion string `json:"app_version"`
	OSVersion  string `json:"os_version"`
}

var validRoles = map[string]bool{
	models.RoleOwner:     true,
	models.RoleManager:   true,
	models.RoleTruckLead: true,
	models.RoleCook:      true,
	models.RoleCashier:   true,
}

var validChannels = map[string]bool{
	models.ChannelPush:  true,
	models.ChannelSMS:   true,
	models.ChannelEmail: true,
}

// --- StaffService Interface ---

type StaffService interface {
	CreateStaff(req CreateStaffRequest) (*models.Staff, error)
	GetStaffByID(id int64) (*models.Staff, error)
	GetStaffList() ([]models.Staff, error)
	UpdateStaff(id int64, req UpdateStaffRequest) (*models.Staff, error)
	DeleteStaff(id int64) error

	RegisterDevice(staffID int64, req RegisterDeviceRequest) (*models.Device, error)
	GetDevices(staffID int64) ([]models.Device, error)
	RevokeDevice(staffID, deviceID int64) error
}

type staffService struct {
	staffRepo repositories.StaffRepository
}

// NewStaffService creates a new instance of StaffService.
func NewStaffService(sr repositories.StaffRepository) StaffService {
	return &staffService{staffRepo: sr}
}

func (s *staffService) CreateStaff(req CreateStaffRequest) (*models.Staff, error) {
	if !validRoles[req.Role] {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}
	channel := req.PreferredNotificationChannel
	if channel == "" {
		channel = models.ChannelPush
	}
	if !validChannels[channel] {
		return nil, fmt.Errorf("%w: unknown notification channel %q", ErrValidation, channel)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	staff := &models.Staff{
		Name:                         req.Name,
		Username:                     req.Username,
		PasswordHash:                 string(hash),
		Role:                         req.Role,
		TruckID:                      req.TruckID,
		PhoneNumber:                  req.PhoneNumber,
		PreferredNotificationChannel: channel,
		Email:                        req.Email,
	}
	if _, err := s.staffRepo.CreateStaff(nil, staff); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}
	return staff, nil
}

func (s *staffService) GetStaffByID(id int64) (*models.Staff, error) {
	staff, err := s.staffRepo.GetStaffByID(nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff %d: %w", id, err)
	}
	return staff, nil
}

func (s *staffService) GetStaffList() ([]models.Staff, error) {
	staffList, err := s.staffRepo.GetStaffList()
	if err != nil {
		return nil, fmt.Errorf("failed to get staff list: %w", err)
	}
	return staffList, nil
}

func (s *staffService) UpdateStaff(id int64, req UpdateStaffRequest) (*models.Staff, error) {
	staff, err := s.staffRepo.GetStaffByID(nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff %d: %w", id, err)
	}

	if req.Name != nil {
		staff.Name = *req.Name
	}
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
		}
		hash, herr := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if herr != nil {
			return nil, fmt.Errorf("failed to hash password: %w", herr)
		}
		staff.PasswordHash = string(hash)
	}
	if req.Role != nil {
		if !validRoles[*req.Role] {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
		staff.Role = *req.Role
	}
	if req.TruckID != nil {
		staff.TruckID = req.TruckID
	}
	if req.PhoneNumber != nil {
		staff.PhoneNumber = req.PhoneNumber
	}
	if req.PreferredNotificationChannel != nil {
		if !validChannels[*req.PreferredNotificationChannel] {
			return nil, fmt.Errorf("%w: unknown notification channel %q", ErrValidation, *req.PreferredNotificationChannel)
		}
		staff.PreferredNotificationChannel = *req.PreferredNotificationChannel
	}
	if req.Email != nil {
		staff.Email = req.Email
	}

	if err := s.staffRepo.UpdateStaff(nil, staff); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, fmt.Errorf("failed to update staff %d: %w", id, err)
	}
	return staff, nil
}

func (s *staffService) DeleteStaff(id int64) error {
	if err := s.staffRepo.DeleteStaff(nil, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrStaffNotFound
		}
		return fmt.Errorf("failed to delete staff %d: %w", id, err)
	}
	return nil
}

// --- Devices ---

func (s *staffService) RegisterDevice(staffID int64, req RegisterDeviceRequest) (*models.Device, error) {
	device := &models.Device{
		StaffID:    staffID,
		APNsToken:  req.APNsToken,
		Platform:   req.Platform,
		AppVersion: req.AppVersion,
		OSVersion:  req.OSVersion,
	}
	if _, err := s.staffRepo.RegisterDevice(nil, device); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return device, nil
}

func (s *staffService) GetDevices(staffID int64) ([]models.Device, error) {
	devices, err := s.staffRepo.GetDevicesByStaff(staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices for staff %d: %w", staffID, err)
	}
	return devices, nil
}

func (s *staffService) RevokeDevice(staffID, deviceID int64) error {
	if err := s.staffRepo.RevokeDevice(nil, deviceID, staffID, time.Now()); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to revoke device %d: %w", deviceID, err)
	}
	return nil
}
