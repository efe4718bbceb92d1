// models/notification.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "queued"
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Notification is an outbox row waiting for the dispatcher.
type Notification struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	BatchID      string             `json:"batch_id" gorm:"size:36;index"`
	Channel      string             `json:"channel" gorm:"size:8;default:'email'"`
	To           string             `json:"to" gorm:"size:255;not null"`
	TemplateCode string             `json:"template_code" gorm:"size:64;not null"`
	Context      datatypes.JSONMap  `json:"context"`
	Status       NotificationStatus `json:"status" gorm:"size:16;default:'queued';index"`
	Attempts     int                `json:"attempts" gorm:"default:0"`
	Error        string             `json:"error" gorm:"type:text"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
