package notifier

import (
	"jobsphere/internal/model"
)

// Event 表示一条待投递的业务通知。
type Event struct {
	UserID            uint                   `json:"user_id"`
	Type              model.NotificationType `json:"notification_type"`
	Title             string                 `json:"title"`
	Message           string                 `json:"message"`
	Priority          string                 `json:"priority"`
	ActionURL         string                 `json:"action_url,omitempty"`
	RelatedObjectType string                 `json:"related_object_type,omitempty"`
	RelatedObjectID   uint                   `json:"related_object_id,omitempty"`
	Metadata          map[string]any         `json:"metadata,omitempty"`
}

// categoryPreference 返回事件类型对应的偏好开关，空串表示不受类别开关控制。
func categoryPreference(t model.NotificationType) string {
	switch t {
	case model.NotifyJobApplication, model.NotifyApplicationStatus, model.NotifyInterview:
		return model.PrefApplicationUpdates
	case model.NotifyJobPosting:
		return model.PrefJobAlerts
	case model.NotifyMessage:
		return model.PrefMessageNotifications
	case model.NotifySystem:
		return model.PrefSystemNotifications
	default:
		return ""
	}
}
