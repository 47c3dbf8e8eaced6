package storage

import (
	"context"
	"fmt"

	"jobsphere/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// GetOrCreateDashboard 获取用户仪表盘，不存在时以默认偏好创建。
func (s *Store) GetOrCreateDashboard(ctx context.Context, userID uint) (*model.Dashboard, error) {
	d := model.Dashboard{
		UserID:                  userID,
		Layout:                  datatypes.JSONMap{},
		NotificationPreferences: model.DefaultNotificationPreferences(),
	}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&d)
	if tx.Error != nil {
		return nil, translate("create dashboard", tx.Error)
	}
	if tx.RowsAffected > 0 {
		return &d, nil
	}

	var existing model.Dashboard
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, translate("get dashboard", err)
	}
	return &existing, nil
}

// SaveDashboardStats 写入统计快照字段。
func (s *Store) SaveDashboardStats(ctx context.Context, d *model.Dashboard) error {
	tx := s.db.WithContext(ctx).Model(d).Select(
		"total_applications", "active_applications", "pending_applications", "reviewed_applications",
		"interview_applications", "accepted_applications", "rejected_applications",
		"jobs_posted", "active_job_posts", "applications_received", "jobs_filled",
		"stats_updated_at", "updated_at",
	).Updates(d)
	if tx.Error != nil {
		return fmt.Errorf("save dashboard stats: %w", tx.Error)
	}
	return nil
}

// SaveDashboardPreferences 写入布局与通知偏好。
func (s *Store) SaveDashboardPreferences(ctx context.Context, d *model.Dashboard) error {
	tx := s.db.WithContext(ctx).Model(d).Select("layout", "notification_preferences", "updated_at").Updates(d)
	if tx.Error != nil {
		return fmt.Errorf("save dashboard preferences: %w", tx.Error)
	}
	return nil
}
