package model

import (
	"time"

	"gorm.io/datatypes"
)

// 提醒频率。
const (
	AlertImmediate = "immediate"
	AlertDaily     = "daily"
	AlertWeekly    = "weekly"
)

// SavedSearch 用户保存的职位检索条件，可开启新职位提醒。
type SavedSearch struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserID            uint              `gorm:"index;not null" json:"user_id"`
	Name              string            `gorm:"size:100;not null" json:"name"`
	QueryText         string            `gorm:"size:200" json:"query_text"`
	Category          string            `gorm:"size:100" json:"category"`
	LocationID        uint              `json:"location_id,omitempty"`
	JobType           string            `gorm:"size:20" json:"job_type"`
	ExperienceLevel   string            `gorm:"size:20" json:"experience_level"`
	SalaryMin         *float64          `json:"salary_min,omitempty"`
	SalaryMax         *float64          `json:"salary_max,omitempty"`
	IsRemote          *bool             `json:"is_remote,omitempty"`
	AdditionalFilters datatypes.JSONMap `json:"additional_filters"`
	EmailAlerts       bool              `gorm:"index" json:"email_alerts"`
	AlertFrequency    string            `gorm:"size:20" json:"alert_frequency"`
	LastAlertSent     *time.Time        `json:"last_alert_sent,omitempty"`
	LastUsed          *time.Time        `gorm:"index" json:"last_used,omitempty"`
	UseCount          int64             `json:"use_count"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// AlertDue 判断按频率此刻是否应发送提醒。
func (s SavedSearch) AlertDue(now time.Time) bool {
	if !s.EmailAlerts {
		return false
	}
	if s.LastAlertSent == nil {
		return true
	}
	switch s.AlertFrequency {
	case AlertImmediate:
		return true
	case AlertWeekly:
		return !now.Before(s.LastAlertSent.Add(7 * 24 * time.Hour))
	default:
		return !now.Before(s.LastAlertSent.Add(24 * time.Hour))
	}
}
