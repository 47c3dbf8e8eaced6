package storage

import (
	"context"
	"fmt"
	"time"

	"jobsphere/internal/model"

	"gorm.io/gorm"
)

// NotificationQuery 描述通知列表筛选条件。
type NotificationQuery struct {
	Page
	UserID     uint
	UnreadOnly bool
	// ActiveAt 非零时过滤掉已忽略或已过期的通知。
	ActiveAt time.Time
	Type     model.NotificationType
	Priority string
}

// NotificationStats 通知统计。
type NotificationStats struct {
	Total        int64            `json:"total"`
	Unread       int64            `json:"unread"`
	HighPriority int64            `json:"high_priority"`
	Urgent       int64            `json:"urgent"`
	ByType       map[string]int64 `json:"by_type"`
}

// CreateNotification 新增通知。
func (s *Store) CreateNotification(ctx context.Context, n *model.Notification) error {
	return translate("create notification", s.db.WithContext(ctx).Create(n).Error)
}

// GetNotification 根据 ID 获取通知。
func (s *Store) GetNotification(ctx context.Context, id uint) (*model.Notification, error) {
	var n model.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, translate("get notification", err)
	}
	return &n, nil
}

// ListNotifications 返回按创建时间倒序的通知及总数。
func (s *Store) ListNotifications(ctx context.Context, q NotificationQuery) ([]model.Notification, int64, error) {
	base := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", q.UserID)
		if q.UnreadOnly {
			db = db.Where("is_read = ?", false)
		}
		if !q.ActiveAt.IsZero() {
			db = db.Where("is_dismissed = ?", false).Where("expires_at IS NULL OR expires_at > ?", q.ActiveAt)
		}
		if q.Type != "" {
			db = db.Where("type = ?", q.Type)
		}
		if q.Priority != "" {
			db = db.Where("priority = ?", q.Priority)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	var out []model.Notification
	if err := applyPage(base().Order("created_at DESC").Order("id DESC"), q.Page).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return out, total, nil
}

// NotificationStatsFor 统计用户通知。
func (s *Store) NotificationStatsFor(ctx context.Context, userID uint) (NotificationStats, error) {
	stats := NotificationStats{ByType: map[string]int64{}}
	db := s.db.WithContext(ctx).Model(&model.Notification{})
	if err := db.Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("count notifications: %w", err)
	}

	var rows []struct {
		Type     string
		Priority string
		Total    int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Notification{}).
		Select("type, priority, COUNT(*) AS total").
		Where("user_id = ? AND is_read = ?", userID, false).
		Group("type, priority").Scan(&rows).Error; err != nil {
		return stats, fmt.Errorf("count unread notifications: %w", err)
	}
	for _, r := range rows {
		stats.Unread += r.Total
		stats.ByType[r.Type] += r.Total
		switch r.Priority {
		case model.PriorityHigh:
			stats.HighPriority += r.Total
		case model.PriorityUrgent:
			stats.Urgent += r.Total
		}
	}
	return stats, nil
}

// MarkNotificationsRead 将用户的指定通知标为已读，ids 为空时处理全部未读。
func (s *Store) MarkNotificationsRead(ctx context.Context, userID uint, ids []uint, now time.Time) (int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		db = db.Where("id IN ?", ids)
	}
	tx := db.Updates(map[string]any{"is_read": true, "read_at": now})
	if tx.Error != nil {
		return 0, fmt.Errorf("mark notifications read: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// UpdateNotificationFlags 更新已读/忽略状态。
func (s *Store) UpdateNotificationFlags(ctx context.Context, n *model.Notification) error {
	tx := s.db.WithContext(ctx).Model(n).Select("is_read", "is_dismissed", "read_at").Updates(n)
	return translate("update notification", tx.Error)
}

// MarkNotificationEmailed 记录邮件已发送。
func (s *Store) MarkNotificationEmailed(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("email_sent", true)
	return translate("mark notification emailed", tx.Error)
}

// DeleteNotification 删除通知。
func (s *Store) DeleteNotification(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Delete(&model.Notification{}, id)
	if tx.Error != nil {
		return translate("delete notification", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete notification %d: %w", id, ErrNotFound)
	}
	return nil
}
