package catalog

import (
	"context"
	"errors"
	"strings"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

// LocationStore 定义地点持久化接口。
type LocationStore interface {
	CreateLocation(ctx context.Context, l *model.Location) error
	GetLocation(ctx context.Context, id uint) (*model.Location, error)
	ListLocations(ctx context.Context, query string, page storage.Page) ([]model.Location, error)
}

// LocationInput 新建地点请求。
type LocationInput struct {
	Name          string   `json:"name"`
	City          string   `json:"city"`
	StateProvince string   `json:"state_province"`
	Country       string   `json:"country"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	IsRemote      bool     `json:"is_remote"`
}

// Locations 管理职位可引用的地点。
type Locations struct {
	store LocationStore
}

// NewLocations 创建地点服务。
func NewLocations(store LocationStore) *Locations {
	return &Locations{store: store}
}

// Create 校验并保存地点。
func (s *Locations) Create(ctx context.Context, in LocationInput) (*model.Location, error) {
	loc := model.Location{
		Name:          strings.TrimSpace(in.Name),
		City:          strings.TrimSpace(in.City),
		StateProvince: strings.TrimSpace(in.StateProvince),
		Country:       strings.TrimSpace(in.Country),
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		IsRemote:      in.IsRemote,
	}
	if loc.Name == "" {
		return nil, apperr.Validation("location name is required")
	}
	if loc.Latitude != nil && (*loc.Latitude < -90 || *loc.Latitude > 90) {
		return nil, apperr.Validation("latitude must be between -90 and 90")
	}
	if loc.Longitude != nil && (*loc.Longitude < -180 || *loc.Longitude > 180) {
		return nil, apperr.Validation("longitude must be between -180 and 180")
	}
	if err := s.store.CreateLocation(ctx, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// Get 根据 ID 返回地点。
func (s *Locations) Get(ctx context.Context, id uint) (*model.Location, error) {
	loc, err := s.store.GetLocation(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("location %d not found", id)
	}
	return loc, err
}

// List 按关键字分页查询地点。
func (s *Locations) List(ctx context.Context, query string, page, pageSize int) ([]model.Location, error) {
	out, err := s.store.ListLocations(ctx, query, storage.PageOf(page, pageSize))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Location{}
	}
	return out, nil
}

// Nearby 半径检索未启用，始终返回空列表。
func (s *Locations) Nearby(ctx context.Context, lat, lon, radiusKM float64) []model.Location {
	return []model.Location{}
}
