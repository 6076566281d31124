package models

import "time"

// Staff roles used for authorization across the API.
const (
	RoleOwner     = "Owner"
	RoleManager   = "Manager"
	RoleTruckLead = "TruckLead"
	RoleCook      = "Cook"
	RoleCashier   = "Cashier"
)

// Notification channels a staff member can prefer.
const (
	ChannelPush  = "push"
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// Staff represents a staff member who can log into the mobile app.
type Staff struct {
	ID                           int64     `json:"id" db:"id"`
	Name                         string    `json:"name" db:"name"`
	Username                     string    `json:"username" db:"username"`
	PasswordHash                 string    `json:"-" db:"password_hash"`
	Role                         string    `json:"role" db:"role"`
	TruckID                      *int64    `json:"truck_id,omitempty" db:"truck_id"`
	PhoneNumber                  *string   `json:"phone_number,omitempty" db:"phone_number"`
	PreferredNotificationChannel string    `json:"preferred_notification_channel" db:"preferred_notification_channel"`
	Email                        *string   `json:"email,omitempty" db:"email"`
	CreatedAt                    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at" db:"updated_at"`
}

// Device is a registered mobile device that receives push notifications.
type Device struct {
	ID         int64      `json:"id" db:"id"`
	StaffID    int64      `json:"staff_id" db:"staff_id"`
	APNsToken  string     `json:"apns_token" db:"apns_token"`
	Platform   string     `json:"platform" db:"platform"`
	AppVersion string     `json:"app_version" db:"app_version"`
	OSVersion  string     `json:"os_version" db:"os_version"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}
