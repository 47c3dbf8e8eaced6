package storage

import (
	"context"
	"errors"
	"fmt"

	"jobsphere/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateSavedJob 新增收藏。
func (s *Store) CreateSavedJob(ctx context.Context, sj *model.SavedJob) error {
	return translate("create saved job", s.db.WithContext(ctx).Omit(clause.Associations).Create(sj).Error)
}

// FindSavedJob 查找用户对职位的收藏，不存在时返回 nil, nil。
func (s *Store) FindSavedJob(ctx context.Context, userID, jobID uint) (*model.SavedJob, error) {
	var sj model.SavedJob
	err := s.db.WithContext(ctx).Where("user_id = ? AND job_id = ?", userID, jobID).First(&sj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find saved job: %w", err)
	}
	return &sj, nil
}

// GetSavedJob 根据 ID 获取收藏。
func (s *Store) GetSavedJob(ctx context.Context, id uint) (*model.SavedJob, error) {
	var sj model.SavedJob
	if err := s.db.WithContext(ctx).Preload("Job").First(&sj, id).Error; err != nil {
		return nil, translate("get saved job", err)
	}
	return &sj, nil
}

// UpdateSavedJobNotes 更新收藏备注。
func (s *Store) UpdateSavedJobNotes(ctx context.Context, id uint, notes string) error {
	tx := s.db.WithContext(ctx).Model(&model.SavedJob{}).Where("id = ?", id).Update("notes", notes)
	if tx.Error != nil {
		return translate("update saved job", tx.Error)
	}
	return nil
}

// DeleteSavedJob 删除收藏。
func (s *Store) DeleteSavedJob(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Delete(&model.SavedJob{}, id)
	if tx.Error != nil {
		return translate("delete saved job", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete saved job %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListSavedJobs 返回用户收藏列表及总数。
func (s *Store) ListSavedJobs(ctx context.Context, userID uint, page Page) ([]model.SavedJob, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.SavedJob{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count saved jobs: %w", err)
	}
	var out []model.SavedJob
	query := s.db.WithContext(ctx).Preload("Job").Preload("Job.Location").
		Where("user_id = ?", userID).Order("saved_at DESC").Order("id DESC")
	if err := applyPage(query, page).Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list saved jobs: %w", err)
	}
	return out, total, nil
}
