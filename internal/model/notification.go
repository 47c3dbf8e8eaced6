package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType 通知类别。
type NotificationType string

const (
	NotifyJobApplication    NotificationType = "job_application"
	NotifyApplicationStatus NotificationType = "application_status"
	NotifyMessage           NotificationType = "message"
	NotifyJobPosting        NotificationType = "job_posting"
	NotifyInterview         NotificationType = "interview"
	NotifySystem            NotificationType = "system"
	NotifyProfile           NotificationType = "profile"
	NotifyPayment           NotificationType = "payment"
)

// NotificationTypes 列出所有通知类别。
var NotificationTypes = []NotificationType{
	NotifyJobApplication, NotifyApplicationStatus, NotifyMessage, NotifyJobPosting,
	NotifyInterview, NotifySystem, NotifyProfile, NotifyPayment,
}

// 通知优先级。
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification 站内通知。
type Notification struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserID            uint              `gorm:"index;not null" json:"user_id"`
	Type              NotificationType  `gorm:"size:30;index" json:"notification_type"`
	Title             string            `gorm:"size:200" json:"title"`
	Message           string            `gorm:"type:text" json:"message"`
	Priority          string            `gorm:"size:10;default:normal;index" json:"priority"`
	ActionURL         string            `gorm:"size:500" json:"action_url"`
	RelatedObjectType string            `gorm:"size:50" json:"related_object_type"`
	RelatedObjectID   uint              `json:"related_object_id"`
	IsRead            bool              `gorm:"default:false;index" json:"is_read"`
	IsDismissed       bool              `gorm:"default:false" json:"is_dismissed"`
	EmailSent         bool              `gorm:"default:false" json:"email_sent"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	CreatedAt         time.Time         `gorm:"index" json:"created_at"`
	ReadAt            *time.Time        `json:"read_at,omitempty"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}
