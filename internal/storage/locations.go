package storage

import (
	"context"
	"fmt"

	"jobsphere/internal/model"
)

// CreateLocation 新增地点。
func (s *Store) CreateLocation(ctx context.Context, l *model.Location) error {
	return translate("create location", s.db.WithContext(ctx).Create(l).Error)
}

// GetLocation 根据 ID 获取地点。
func (s *Store) GetLocation(ctx context.Context, id uint) (*model.Location, error) {
	var l model.Location
	if err := s.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, translate("get location", err)
	}
	return &l, nil
}

// ListLocations 按名称/城市/国家模糊查询地点。
func (s *Store) ListLocations(ctx context.Context, query string, page Page) ([]model.Location, error) {
	db := s.db.WithContext(ctx).Model(&model.Location{}).Order("name ASC")
	if like := containsPattern(query); like != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(city) LIKE ? ESCAPE '!' OR LOWER(country) LIKE ? ESCAPE '!'", like, like, like)
	}
	var out []model.Location
	if err := applyPage(db, page).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return out, nil
}
