package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusionx_backend/internal/models"
	"fusionx_backend/internal/repositories"
	"fusionx_backend/internal/storage"
	"fusionx_backend/pkg/utils"
)

// NotificationService queues staff notifications: every decision lands in
// the notification log, and queued ones are handed to the broker for the
// delivery workers. It implements Notifier.
type NotificationService interface {
	Notifier
	GetShiftLog(shiftID int64, limit int) ([]models.NotificationLog, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	staffRepo        repositories.StaffRepository
	shiftRepo        repositories.ShiftRepository
	publisher        *storage.KafkaPublisher
}

// NewNotificationService creates a new instance of NotificationService.
// publisher may be nil; notifications are then logged but not queued.
func NewNotificationService(
	nr repositories.NotificationRepository,
	str repositories.StaffRepository,
	shr repositories.ShiftRepository,
	publisher *storage.KafkaPublisher,
) NotificationService {
	return &notificationService{
		notificationRepo: nr,
		staffRepo:        str,
		shiftRepo:        shr,
		publisher:        publisher,
	}
}

func (s *notificationService) NotifyLowStock(shiftID int64, itemName string, stockCount *int) {
	body := fmt.Sprintf("Low stock: %s", itemName)
	if stockCount != nil {
		body = fmt.Sprintf("Low stock: %s (%d left)", itemName, *stockCount)
	}
	go s.fanOut(shiftID, "low_stock", body)
}

func (s *notificationService) NotifyNewOrder(shiftID, orderID int64) {
	go s.fanOut(shiftID, "new_order", fmt.Sprintf("New order #%d", orderID))
}

// fanOut resolves the shift's truck staff and queues one notification per
// recipient on their preferred channel. Runs off the request path; failures
// are logged and swallowed.
func (s *notificationService) fanOut(shiftID int64, kind, body string) {
	shift, err := s.shiftRepo.GetShiftByID(nil, shiftID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			utils.LogError(err, "notification fan-out: fetching shift")
		}
		return
	}
	staffList, err := s.staffRepo.GetStaffByTruck(shift.TruckID)
	if err != nil {
		utils.LogError(err, "notification fan-out: fetching staff")
		return
	}

	now := time.Now()
	for i := range staffList {
		staff := &staffList[i]
		s.queueForStaff(shift, staff, kind, body, now)
	}
}

func (s *notificationService) queueForStaff(shift *models.TruckShift, staff *models.Staff, kind, body string, now time.Time) {
	payload, _ := json.Marshal(map[string]string{"kind": kind, "body": body})

	entry := models.NotificationLog{
		ShiftID:   &shift.ID,
		StaffID:   &staff.ID,
		Channel:   staff.PreferredNotificationChannel,
		Payload:   string(payload),
		Status:    models.NotificationQueued,
		CreatedAt: now,
	}

	var deviceID *int64
	switch staff.PreferredNotificationChannel {
	case models.ChannelPush:
		devices, err := s.staffRepo.GetActiveDevicesByStaff(nil, staff.ID)
		if err != nil {
			utils.LogError(err, "notification fan-out: fetching devices")
			return
		}
		if len(devices) == 0 {
			entry.Status = models.NotificationSkipped
		} else {
			deviceID = &devices[0].ID
			entry.DeviceID = deviceID
		}
	case models.ChannelSMS:
		if staff.PhoneNumber == nil || *staff.PhoneNumber == "" {
			entry.Status = models.NotificationSkipped
		}
	case models.ChannelEmail:
		if staff.Email == nil || *staff.Email == "" {
			entry.Status = models.NotificationSkipped
		}
	default:
		entry.Status = models.NotificationSkipped
	}

	if _, err := s.notificationRepo.CreateLog(nil, &entry); err != nil {
		utils.LogError(err, "notification fan-out: writing log")
		return
	}
	if entry.Status != models.NotificationQueued || s.publisher == nil {
		return
	}

	msg := storage.NotificationMessage{
		ShiftID:   shift.ID,
		StaffID:   staff.ID,
		Channel:   staff.PreferredNotificationChannel,
		Kind:      kind,
		Body:      body,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
	if deviceID != nil {
		msg.DeviceID = *deviceID
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		utils.LogError(err, "notification fan-out: publishing to broker")
	}
}

func (s *notificationService) GetShiftLog(shiftID int64, limit int) ([]models.NotificationLog, error) {
	logs, err := s.notificationRepo.GetLogsByShift(shiftID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification log: %w", err)
	}
	return logs, nil
}
