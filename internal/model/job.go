package model

import (
	"strings"
	"time"
)

// JobStatus 表示职位生命周期状态。
type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusFilled    JobStatus = "filled"
	JobStatusExpired   JobStatus = "expired"
	JobStatusCancelled JobStatus = "cancelled"
)

// ParseJobStatus 解析状态，published 视为 active 的别名。
func ParseJobStatus(s string) (JobStatus, bool) {
	switch v := JobStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case JobStatusDraft, JobStatusActive, JobStatusPaused, JobStatusFilled, JobStatusExpired, JobStatusCancelled:
		return v, true
	case "published":
		return JobStatusActive, true
	default:
		return "", false
	}
}

var (
	JobTypes         = []string{"full_time", "part_time", "contract", "internship", "freelance", "temporary"}
	ExperienceLevels = []string{"entry", "junior", "mid", "senior", "lead", "executive"}
	SalaryTypes      = []string{"hourly", "monthly", "yearly"}
	RemoteTypes      = []string{"no", "partial", "full"}
)

// Job 表示雇主发布的职位。
// - ViewCount/ApplicationCount 为缓存计数，由调度任务定期重算
// - Slug 唯一，用于对外链接
type Job struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Title               string     `gorm:"size:200;index;not null" json:"title"`
	Company             string     `gorm:"size:100;index;not null" json:"company"`
	Description         string     `gorm:"type:text;not null" json:"description"`
	Requirements        string     `gorm:"type:text" json:"requirements"`
	Benefits            string     `gorm:"type:text" json:"benefits"`
	JobType             string     `gorm:"size:20;index:idx_jobs_status_type,priority:2" json:"job_type"`
	ExperienceLevel     string     `gorm:"size:20;index" json:"experience_level"`
	Category            string     `gorm:"size:100;index" json:"category"`
	SkillsRequired      string     `gorm:"type:text" json:"skills_required"`
	SalaryMin           *float64   `json:"salary_min,omitempty"`
	SalaryMax           *float64   `json:"salary_max,omitempty"`
	SalaryCurrency      string     `gorm:"size:3;default:USD" json:"salary_currency"`
	SalaryType          string     `gorm:"size:20;default:yearly" json:"salary_type"`
	LocationID          *uint      `gorm:"index" json:"location_id,omitempty"`
	Location            *Location  `json:"location,omitempty"`
	IsRemote            bool       `gorm:"index" json:"is_remote"`
	RemoteType          string     `gorm:"size:20;default:no" json:"remote_type"`
	PostedByID          uint       `gorm:"index;not null" json:"posted_by_id"`
	PostedBy            *User      `json:"-"`
	Status              JobStatus  `gorm:"size:20;default:draft;index:idx_jobs_status_type,priority:1" json:"status"`
	ApplicationDeadline *time.Time `gorm:"index" json:"application_deadline,omitempty"`
	Slug                string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	MetaDescription     string     `gorm:"size:160" json:"meta_description"`
	ViewCount           int64      `gorm:"default:0" json:"view_count"`
	ApplicationCount    int64      `gorm:"default:0" json:"application_count"`
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	PublishedAt         *time.Time `gorm:"index" json:"published_at,omitempty"`
}

// IsExpiredAt 判断截止时间是否已过。
func (j Job) IsExpiredAt(now time.Time) bool {
	return j.ApplicationDeadline != nil && !j.ApplicationDeadline.After(now)
}

// JobView 记录一次职位浏览，同一用户只记录一次。
type JobView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     uint      `gorm:"uniqueIndex:idx_job_views_job_user;not null" json:"job_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_job_views_job_user;not null" json:"user_id"`
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"type:text" json:"user_agent"`
	Referrer  string    `gorm:"size:500" json:"referrer"`
	Source    string    `gorm:"size:50" json:"source"`
	ViewedAt  time.Time `gorm:"autoCreateTime;index" json:"viewed_at"`
}
