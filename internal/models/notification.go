package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelPush  NotificationChannel = "push"
	ChannelSMS   NotificationChannel = "sms"
)

// Notification - запись во входящих пользователя (push-канал)
type Notification struct {
	BaseModel
	UserID  string            `gorm:"size:64;not null;index" json:"user_id"`
	Type    string            `gorm:"size:64;not null" json:"type"` // "application.submitted", "showcase.approved", ...
	Title   string            `gorm:"not null" json:"title"`
	Message string            `gorm:"type:text" json:"message"`
	Data    datatypes.JSONMap `json:"data,omitempty"` // {"gig_id": "...", "showcase_id": "..."}
	IsRead  bool              `gorm:"default:false" json:"is_read"`
	ReadAt  *time.Time        `json:"read_at,omitempty"`
}
