package model

import (
	"time"

	"gorm.io/datatypes"
)

// Dashboard 保存用户仪表盘偏好与最近一次统计快照。
type Dashboard struct {
	ID                      uint              `gorm:"primaryKey" json:"id"`
	UserID                  uint              `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalApplications       int64             `json:"total_applications"`
	ActiveApplications      int64             `json:"active_applications"`
	PendingApplications     int64             `json:"pending_applications"`
	ReviewedApplications    int64             `json:"reviewed_applications"`
	InterviewApplications   int64             `json:"interview_applications"`
	AcceptedApplications    int64             `json:"accepted_applications"`
	RejectedApplications    int64             `json:"rejected_applications"`
	JobsPosted              int64             `json:"jobs_posted"`
	ActiveJobPosts          int64             `json:"active_job_posts"`
	ApplicationsReceived    int64             `json:"applications_received"`
	JobsFilled              int64             `json:"jobs_filled"`
	Layout                  datatypes.JSONMap `json:"dashboard_layout"`
	NotificationPreferences datatypes.JSONMap `json:"notification_preferences"`
	StatsUpdatedAt          *time.Time        `json:"stats_updated_at,omitempty"`
	UpdatedAt               time.Time         `json:"last_updated"`
}

// 通知偏好键。
const (
	PrefEmailNotifications   = "email_notifications"
	PrefPushNotifications    = "push_notifications"
	PrefJobAlerts            = "job_alerts"
	PrefApplicationUpdates   = "application_updates"
	PrefMessageNotifications = "message_notifications"
	PrefSystemNotifications  = "system_notifications"
)

// DefaultNotificationPreferences 返回默认通知偏好（全部开启）。
func DefaultNotificationPreferences() datatypes.JSONMap {
	return datatypes.JSONMap{
		PrefEmailNotifications:   true,
		PrefPushNotifications:    true,
		PrefJobAlerts:            true,
		PrefApplicationUpdates:   true,
		PrefMessageNotifications: true,
		PrefSystemNotifications:  true,
	}
}

// PreferenceEnabled 读取偏好开关，缺省视为开启。
func (d Dashboard) PreferenceEnabled(key string) bool {
	if d.NotificationPreferences == nil {
		return true
	}
	v, ok := d.NotificationPreferences[key]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return !ok || b
}
