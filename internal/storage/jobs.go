package storage

import (
	"context"
	"fmt"
	"time"

	"jobsphere/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobQueryOptions 提供职位查询过滤条件。
type JobQueryOptions struct {
	Page
	Search          string
	JobType         string
	ExperienceLevel string
	Category        string
	LocationID      uint
	IsRemote        *bool
	RemoteType      string
	MinSalary       *float64
	MaxSalary       *float64
	// OpenAt 非零时只返回 active 且截止时间晚于该时刻（或无截止时间）的职位。
	OpenAt time.Time
	// PostedBy 非零时只返回该用户发布的职位。
	PostedBy uint
	// ExcludePostedBy 非零时排除该用户发布的职位。
	ExcludePostedBy uint
	// PublishedAfter 非零时只返回此后发布的职位。
	PublishedAfter time.Time
}

// JobListStats 职位列表聚合统计。
type JobListStats struct {
	TotalJobs    int64    `json:"total_jobs"`
	AvgSalaryMin *float64 `json:"avg_salary_min"`
	AvgSalaryMax *float64 `json:"avg_salary_max"`
	RemoteJobs   int64    `json:"remote_jobs"`
}

// CreateJob 新增职位。
func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	return translate("create job", s.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error)
}

// GetJob 根据 ID 获取职位，附带地点与发布人。
func (s *Store) GetJob(ctx context.Context, id uint) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).Preload("Location").Preload("PostedBy").First(&job, id).Error; err != nil {
		return nil, translate("get job", err)
	}
	return &job, nil
}

// SaveJob 保存职位的全部可编辑字段。
func (s *Store) SaveJob(ctx context.Context, job *model.Job) error {
	return translate("save job", s.db.WithContext(ctx).Omit(clause.Associations).Save(job).Error)
}

// SlugExists 判断 slug 是否已被占用。
func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Job{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

// DeleteJob 删除职位及其投递、收藏、浏览记录。
func (s *Store) DeleteJob(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.Application{}, &model.SavedJob{}, &model.JobView{}} {
			if err := tx.Where("job_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.Job{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return translate("delete job", err)
	}
	return nil
}

// ListJobs 返回按发布时间倒序的职位列表及满足条件的总数。
func (s *Store) ListJobs(ctx context.Context, opts JobQueryOptions) ([]model.Job, int64, error) {
	var total int64
	if err := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), opts).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	var jobs []model.Job
	query := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), opts).
		Preload("Location").Preload("PostedBy").
		Order("published_at DESC").Order("created_at DESC").Order("id DESC")
	if err := applyPage(query, opts.Page).Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

// JobStats 返回满足过滤条件的职位聚合统计。
func (s *Store) JobStats(ctx context.Context, opts JobQueryOptions) (JobListStats, error) {
	var out JobListStats
	err := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), opts).
		Select("COUNT(*) AS total_jobs, AVG(salary_min) AS avg_salary_min, AVG(salary_max) AS avg_salary_max, " +
			"COALESCE(SUM(CASE WHEN is_remote THEN 1 ELSE 0 END), 0) AS remote_jobs").
		Scan(&out).Error
	if err != nil {
		return out, fmt.Errorf("job stats: %w", err)
	}
	return out, nil
}

// JobStatusCounts 统计某发布人各状态职位数量。
func (s *Store) JobStatusCounts(ctx context.Context, posterID uint) (map[model.JobStatus]int64, error) {
	var rows []struct {
		Status model.JobStatus
		Total  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Job{}).
		Select("status, COUNT(*) AS total").
		Where("posted_by_id = ?", posterID).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	out := make(map[model.JobStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// PosterTotals 返回发布人收到的有效投递数与浏览数。
func (s *Store) PosterTotals(ctx context.Context, posterID uint) (applications, views int64, err error) {
	db := s.db.WithContext(ctx)
	jobIDs := db.Model(&model.Job{}).Select("id").Where("posted_by_id = ?", posterID)
	if err = db.Model(&model.Application{}).
		Where("job_id IN (?) AND status <> ?", jobIDs, model.ApplicationWithdrawn).
		Count(&applications).Error; err != nil {
		return 0, 0, fmt.Errorf("count received applications: %w", err)
	}
	if err = db.Model(&model.JobView{}).
		Where("job_id IN (?)", jobIDs).
		Count(&views).Error; err != nil {
		return 0, 0, fmt.Errorf("count job views: %w", err)
	}
	return applications, views, nil
}

// CountActiveApplications 返回职位的有效（未撤回）投递数。
func (s *Store) CountActiveApplications(ctx context.Context, jobID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Application{}).
		Where("job_id = ? AND status <> ?", jobID, model.ApplicationWithdrawn).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count job applications: %w", err)
	}
	return n, nil
}

// RecordJobView 记录浏览，同一用户重复浏览不重复写入。
func (s *Store) RecordJobView(ctx context.Context, view *model.JobView) (bool, error) {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(view)
	if tx.Error != nil {
		return false, translate("record job view", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

// RecentJobs 返回发布人最近发布的职位。
func (s *Store) RecentJobs(ctx context.Context, posterID uint, limit int) ([]model.Job, error) {
	var jobs []model.Job
	if err := s.db.WithContext(ctx).Where("posted_by_id = ?", posterID).
		Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	return jobs, nil
}

// JobPostTimes 返回发布人自 since 起发布职位的时间点。
func (s *Store) JobPostTimes(ctx context.Context, posterID uint, since time.Time) ([]time.Time, error) {
	var out []time.Time
	if err := s.db.WithContext(ctx).Model(&model.Job{}).
		Where("posted_by_id = ? AND created_at >= ?", posterID, since).
		Order("created_at ASC").Pluck("created_at", &out).Error; err != nil {
		return nil, fmt.Errorf("job post times: %w", err)
	}
	return out, nil
}

// ExpireJobs 将截止时间已过的 active 职位置为 expired，返回被处理的职位。
func (s *Store) ExpireJobs(ctx context.Context, now time.Time) ([]model.Job, error) {
	var expired []model.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND application_deadline IS NOT NULL AND application_deadline <= ?", model.JobStatusActive, now).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(expired))
		for i := range expired {
			ids = append(ids, expired[i].ID)
			expired[i].Status = model.JobStatusExpired
		}
		return tx.Model(&model.Job{}).Where("id IN ?", ids).Update("status", model.JobStatusExpired).Error
	})
	if err != nil {
		return nil, fmt.Errorf("expire jobs: %w", err)
	}
	return expired, nil
}

// RefreshJobCounters 按源数据重算所有职位的投递数与浏览数缓存。
func (s *Store) RefreshJobCounters(ctx context.Context) (int64, error) {
	tx := s.db.WithContext(ctx).Exec(`UPDATE jobs SET
		application_count = (SELECT COUNT(*) FROM applications WHERE applications.job_id = jobs.id AND applications.status <> ?),
		view_count = (SELECT COUNT(*) FROM job_views WHERE job_views.job_id = jobs.id)`, model.ApplicationWithdrawn)
	if tx.Error != nil {
		return 0, fmt.Errorf("refresh job counters: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

func applyJobFilters(db *gorm.DB, opts JobQueryOptions) *gorm.DB {
	if !opts.OpenAt.IsZero() {
		db = db.Where("status = ?", model.JobStatusActive).
			Where("application_deadline IS NULL OR application_deadline > ?", opts.OpenAt)
	}
	if opts.PostedBy != 0 {
		db = db.Where("posted_by_id = ?", opts.PostedBy)
	}
	if opts.ExcludePostedBy != 0 {
		db = db.Where("posted_by_id <> ?", opts.ExcludePostedBy)
	}
	if !opts.PublishedAfter.IsZero() {
		db = db.Where("published_at > ?", opts.PublishedAfter)
	}
	if like := containsPattern(opts.Search); like != "" {
		db = db.Where("LOWER(title) LIKE ? ESCAPE '!' OR LOWER(company) LIKE ? ESCAPE '!' OR "+
			"LOWER(description) LIKE ? ESCAPE '!' OR LOWER(skills_required) LIKE ? ESCAPE '!'",
			like, like, like, like)
	}
	if opts.JobType != "" {
		db = db.Where("job_type = ?", opts.JobType)
	}
	if opts.ExperienceLevel != "" {
		db = db.Where("experience_level = ?", opts.ExperienceLevel)
	}
	if opts.Category != "" {
		db = db.Where("category = ?", opts.Category)
	}
	if opts.LocationID != 0 {
		db = db.Where("location_id = ?", opts.LocationID)
	}
	if opts.IsRemote != nil {
		db = db.Where("is_remote = ?", *opts.IsRemote)
	}
	if opts.RemoteType != "" {
		db = db.Where("remote_type = ?", opts.RemoteType)
	}
	if opts.MinSalary != nil {
		db = db.Where("salary_min >= ?", *opts.MinSalary)
	}
	if opts.MaxSalary != nil {
		db = db.Where("salary_max <= ?", *opts.MaxSalary)
	}
	return db
}

// CategoryCount 分类及其开放职位数。
type CategoryCount struct {
	Category string `json:"category"`
	JobCount int64  `json:"job_count"`
}

// CategoryCounts 统计开放职位的分类分布，按数量倒序。
func (s *Store) CategoryCounts(ctx context.Context, openAt time.Time) ([]CategoryCount, error) {
	var out []CategoryCount
	err := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), JobQueryOptions{OpenAt: openAt}).
		Select("category, COUNT(*) AS job_count").
		Where("category <> ''").
		Group("category").
		Order("job_count DESC").Order("category ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	return out, nil
}
