package storage

import (
	"context"
	"fmt"

	"jobsphere/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createOrGet 按 user_id 唯一约束插入 fresh，记录已存在时返回已有记录。
func createOrGet[T any](ctx context.Context, db *gorm.DB, what string, userID uint, fresh *T) (*T, error) {
	tx := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(fresh)
	if tx.Error != nil {
		return nil, translate("create "+what, tx.Error)
	}
	if tx.RowsAffected > 0 {
		return fresh, nil
	}

	return findByUser[T](ctx, db, what, userID)
}

// GetOrCreateProfile 读取用户资料，不存在时以 fresh 创建。
func (s *Store) GetOrCreateProfile(ctx context.Context, fresh *model.UserProfile) (*model.UserProfile, error) {
	return createOrGet(ctx, s.db, "profile", fresh.UserID, fresh)
}

func findByUser[T any](ctx context.Context, db *gorm.DB, what string, userID uint) (*T, error) {
	var out T
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, translate("find "+what, err)
	}
	return &out, nil
}

// FindProfile 读取用户资料，不存在时返回 ErrNotFound。
func (s *Store) FindProfile(ctx context.Context, userID uint) (*model.UserProfile, error) {
	return findByUser[model.UserProfile](ctx, s.db, "profile", userID)
}

// SaveProfile 保存资料的全部字段。
func (s *Store) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	return translate("save profile", s.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error)
}

// CreateExperience 新增工作经历。
func (s *Store) CreateExperience(ctx context.Context, e *model.Experience) error {
	return translate("create experience", s.db.WithContext(ctx).Create(e).Error)
}

// GetExperience 根据 ID 获取工作经历。
func (s *Store) GetExperience(ctx context.Context, id uint) (*model.Experience, error) {
	var e model.Experience
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translate("get experience", err)
	}
	return &e, nil
}

// SaveExperience 保存工作经历。
func (s *Store) SaveExperience(ctx context.Context, e *model.Experience) error {
	return translate("save experience", s.db.WithContext(ctx).Save(e).Error)
}

// DeleteExperience 删除工作经历。
func (s *Store) DeleteExperience(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Delete(&model.Experience{}, id)
	if tx.Error != nil {
		return translate("delete experience", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete experience %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListExperiences 返回用户全部工作经历，最近开始的在前。
func (s *Store) ListExperiences(ctx context.Context, userID uint) ([]model.Experience, error) {
	var out []model.Experience
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("start_date DESC").Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	return out, nil
}

// GetOrCreateAbout 读取个人简介，不存在时以 fresh 创建。
func (s *Store) GetOrCreateAbout(ctx context.Context, fresh *model.About) (*model.About, error) {
	return createOrGet(ctx, s.db, "about", fresh.UserID, fresh)
}

// SaveAbout 保存个人简介。
func (s *Store) SaveAbout(ctx context.Context, a *model.About) error {
	return translate("save about", s.db.WithContext(ctx).Save(a).Error)
}

// GetOrCreateContact 读取联系方式，不存在时以 fresh 创建。
func (s *Store) GetOrCreateContact(ctx context.Context, fresh *model.Contact) (*model.Contact, error) {
	return createOrGet(ctx, s.db, "contact", fresh.UserID, fresh)
}

// FindContact 读取联系方式，不存在时返回 ErrNotFound。
func (s *Store) FindContact(ctx context.Context, userID uint) (*model.Contact, error) {
	return findByUser[model.Contact](ctx, s.db, "contact", userID)
}

// SaveContact 保存联系方式。
func (s *Store) SaveContact(ctx context.Context, c *model.Contact) error {
	return translate("save contact", s.db.WithContext(ctx).Save(c).Error)
}
