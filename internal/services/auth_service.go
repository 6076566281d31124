package services

import (
	"errors"
	"fmt"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
	"fusionx_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- DTOs ---

// LoginRequest carries staff credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Staff        *models.Staff `json:"staff"`
}

// RefreshRequest trades a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// --- AuthService Interface ---

type AuthService interface {
	Login(req LoginRequest) (*TokenPair, error)
	Refresh(req RefreshRequest) (*TokenPair, error)
	GetProfile(staffID int64) (*models.Staff, error)
}

type authService struct {
	staffRepo repositories.StaffRepository
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(sr repositories.StaffRepository) AuthService {
	return &authService{staffRepo: sr}
}

func (s *authService) issueTokens(staff *models.Staff) (*TokenPair, error) {
	access, err := utils.GenerateAccessToken(staff.ID, staff.Username, staff.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := utils.GenerateRefreshToken(staff.ID, staff.Username, staff.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, Staff: staff}, nil
}

func (s *authService) Login(req LoginRequest) (*TokenPair, error) {
	staff, err := s.staffRepo.GetStaffByUsername(nil, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueTokens(staff)
}

func (s *authService) Refresh(req RefreshRequest) (*TokenPair, error) {
	claims, err := utils.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	staff, err := s.staffRepo.GetStaffByID(nil, claims.StaffID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}
	return s.issueTokens(staff)
}

func (s *authService) GetProfile(staffID int64) (*models.Staff, error) {
	staff, err := s.staffRepo.GetStaffByID(nil, staffID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff %d: %w", staffID, err)
	}
	return staff, nil
}
