package storage

import (
	"context"
	"fmt"
	"time"

	"jobsphere/internal/model"

	"gorm.io/gorm"
)

// CreateSavedSearch 新增保存的检索。
func (s *Store) CreateSavedSearch(ctx context.Context, ss *model.SavedSearch) error {
	return translate("create saved search", s.db.WithContext(ctx).Create(ss).Error)
}

// GetSavedSearch 根据 ID 获取保存的检索。
func (s *Store) GetSavedSearch(ctx context.Context, id uint) (*model.SavedSearch, error) {
	var ss model.SavedSearch
	if err := s.db.WithContext(ctx).First(&ss, id).Error; err != nil {
		return nil, translate("get saved search", err)
	}
	return &ss, nil
}

// SaveSavedSearch 保存检索的全部字段。
func (s *Store) SaveSavedSearch(ctx context.Context, ss *model.SavedSearch) error {
	return translate("save saved search", s.db.WithContext(ctx).Save(ss).Error)
}

// DeleteSavedSearch 删除保存的检索。
func (s *Store) DeleteSavedSearch(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Delete(&model.SavedSearch{}, id)
	if tx.Error != nil {
		return translate("delete saved search", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete saved search %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountSavedSearches 统计用户保存的检索数。
func (s *Store) CountSavedSearches(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.SavedSearch{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count saved searches: %w", err)
	}
	return n, nil
}

// ListSavedSearches 返回用户保存的检索，最近使用的在前，从未使用的按创建时间倒序排在最后。
func (s *Store) ListSavedSearches(ctx context.Context, userID uint, page Page) ([]model.SavedSearch, int64, error) {
	total, err := s.CountSavedSearches(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	var out []model.SavedSearch
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("CASE WHEN last_used IS NULL THEN 1 ELSE 0 END").
		Order("last_used DESC").Order("created_at DESC").Order("id DESC")
	if err := applyPage(query, page).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list saved searches: %w", err)
	}
	return out, total, nil
}

// TouchSavedSearch 记录一次使用：更新 last_used 并累加 use_count。
func (s *Store) TouchSavedSearch(ctx context.Context, id uint, at time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.SavedSearch{}).Where("id = ?", id).Updates(map[string]any{
		"last_used": at,
		"use_count": gorm.Expr("use_count + 1"),
	})
	if tx.Error != nil {
		return translate("touch saved search", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("touch saved search %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListAlertingSearches 返回开启提醒且属于活跃用户的检索。
func (s *Store) ListAlertingSearches(ctx context.Context) ([]model.SavedSearch, error) {
	db := s.db.WithContext(ctx)
	active := db.Model(&model.User{}).Select("id").Where("is_active = ?", true)
	var out []model.SavedSearch
	err := db.Where("email_alerts = ?", true).
		Where("user_id IN (?)", active).
		Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list alerting searches: %w", err)
	}
	return out, nil
}

// MarkSearchAlerted 记录最近一次提醒时间。
func (s *Store) MarkSearchAlerted(ctx context.Context, id uint, at time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.SavedSearch{}).Where("id = ?", id).Update("last_alert_sent", at)
	return translate("mark search alerted", tx.Error)
}
