package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobsphere/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationQuery 描述投递列表筛选条件。
type ApplicationQuery struct {
	Page
	ApplicantID uint
	JobID       uint
	Status      model.ApplicationStatus
	JobType     string
	Category    string
}

// CreateApplication 新增投递，(job, applicant) 重复时返回 ErrDuplicate。
func (s *Store) CreateApplication(ctx context.Context, app *model.Application) error {
	return translate("create application", s.db.WithContext(ctx).Omit(clause.Associations).Create(app).Error)
}

// GetApplication 根据 ID 获取投递，附带职位。
func (s *Store) GetApplication(ctx context.Context, id uint) (*model.Application, error) {
	var app model.Application
	if err := s.db.WithContext(ctx).Preload("Job").First(&app, id).Error; err != nil {
		return nil, translate("get application", err)
	}
	return &app, nil
}

// FindApplication 查找用户对职位的投递，不存在时返回 nil, nil。
func (s *Store) FindApplication(ctx context.Context, jobID, applicantID uint) (*model.Application, error) {
	var app model.Application
	err := s.db.WithContext(ctx).Where("job_id = ? AND applicant_id = ?", jobID, applicantID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &app, nil
}

// SaveApplication 写回投递的可变字段。
func (s *Store) SaveApplication(ctx context.Context, app *model.Application) error {
	tx := s.db.WithContext(ctx).Model(app).Omit(clause.Associations).
		Select("cover_letter", "portfolio_url", "resume_ref", "status", "notes", "last_contact_date", "interview_scheduled_at", "updated_at").
		Updates(app)
	if tx.Error != nil {
		return translate("save application", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("save application %d: %w", app.ID, ErrNotFound)
	}
	return nil
}

// ListApplications 返回按投递时间倒序的投递列表及总数。
func (s *Store) ListApplications(ctx context.Context, q ApplicationQuery) ([]model.Application, int64, error) {
	base := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&model.Application{})
		if q.ApplicantID != 0 {
			db = db.Where("applications.applicant_id = ?", q.ApplicantID)
		}
		if q.JobID != 0 {
			db = db.Where("applications.job_id = ?", q.JobID)
		}
		if q.Status != "" {
			db = db.Where("applications.status = ?", q.Status)
		}
		if q.JobType != "" || q.Category != "" {
			db = db.Joins("JOIN jobs ON jobs.id = applications.job_id")
			if q.JobType != "" {
				db = db.Where("jobs.job_type = ?", q.JobType)
			}
			if q.Category != "" {
				db = db.Where("jobs.category = ?", q.Category)
			}
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	var apps []model.Application
	query := base().Preload("Job").Preload("Applicant").Order("applications.applied_at DESC").Order("applications.id DESC")
	if err := applyPage(query, q.Page).Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	return apps, total, nil
}

// ApplicationStatusCounts 统计申请人各状态投递数量。
func (s *Store) ApplicationStatusCounts(ctx context.Context, applicantID uint) (map[model.ApplicationStatus]int64, error) {
	var rows []struct {
		Status model.ApplicationStatus
		Total  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Select("status, COUNT(*) AS total").
		Where("applicant_id = ?", applicantID).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}
	out := make(map[model.ApplicationStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// RecentApplications 返回申请人最近的投递，附带职位。
func (s *Store) RecentApplications(ctx context.Context, applicantID uint, limit int) ([]model.Application, error) {
	var apps []model.Application
	if err := s.db.WithContext(ctx).Preload("Job").Where("applicant_id = ?", applicantID).
		Order("applied_at DESC").Limit(limit).Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("recent applications: %w", err)
	}
	return apps, nil
}

// ApplicationTimes 返回申请人自 since 起的投递时间点。
func (s *Store) ApplicationTimes(ctx context.Context, applicantID uint, since time.Time) ([]time.Time, error) {
	var out []time.Time
	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("applicant_id = ? AND applied_at >= ?", applicantID, since).
		Order("applied_at ASC").Pluck("applied_at", &out).Error; err != nil {
		return nil, fmt.Errorf("application times: %w", err)
	}
	return out, nil
}
