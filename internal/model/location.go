package model

import (
	"strings"
	"time"
)

// Location 表示职位所在地点。
type Location struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	City          string    `gorm:"size:100;index" json:"city"`
	StateProvince string    `gorm:"size:100" json:"state_province"`
	Country       string    `gorm:"size:100;index" json:"country"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	IsRemote      bool      `gorm:"default:false" json:"is_remote"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullAddress 拼接非空的城市、省州、国家。
func (l Location) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.City, l.StateProvince, l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
