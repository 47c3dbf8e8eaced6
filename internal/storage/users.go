package storage

import (
	"context"
	"fmt"

	"jobsphere/internal/model"
)

// CreateUser 新增用户。
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	return translate("create user", s.db.WithContext(ctx).Create(u).Error)
}

// GetUser 根据 ID 获取用户。
func (s *Store) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &u, nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate("get user by username", err)
	}
	return &u, nil
}

// UpdateUser 更新用户资料字段。
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	tx := s.db.WithContext(ctx).Model(u).Select("email", "first_name", "last_name", "updated_at").Updates(u)
	return translate("update user", tx.Error)
}

// DeactivateUser 软停用账户。
func (s *Store) DeactivateUser(ctx context.Context, id uint) error {
	tx := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_active", false)
	if tx.Error != nil {
		return translate("deactivate user", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("deactivate user %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListActiveUserIDs 返回全部活跃用户 ID。
func (s *Store) ListActiveUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("is_active = ?", true).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return ids, nil
}
