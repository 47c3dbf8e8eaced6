package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

// Store 定义职位目录所需的持久化接口。
type Store interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	SaveJob(ctx context.Context, job *model.Job) error
	DeleteJob(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListJobs(ctx context.Context, opts storage.JobQueryOptions) ([]model.Job, int64, error)
	JobStats(ctx context.Context, opts storage.JobQueryOptions) (storage.JobListStats, error)
	JobStatusCounts(ctx context.Context, posterID uint) (map[model.JobStatus]int64, error)
	PosterTotals(ctx context.Context, posterID uint) (applications, views int64, err error)
	CountActiveApplications(ctx context.Context, jobID uint) (int64, error)
	RecordJobView(ctx context.Context, view *model.JobView) (bool, error)
	FindApplication(ctx context.Context, jobID, applicantID uint) (*model.Application, error)
	FindSavedJob(ctx context.Context, userID, jobID uint) (*model.SavedJob, error)
	CategoryCounts(ctx context.Context, openAt time.Time) ([]storage.CategoryCount, error)
	LocationStore
}

const (
	minTitleLen       = 5
	minDescriptionLen = 100
	maxSlugAttempts   = 5
)

// JobInput 创建或修改职位的请求，未提供的字段保持原值。
type JobInput struct {
	Title               *string    `json:"title"`
	Company             *string    `json:"company"`
	Description         *string    `json:"description"`
	Requirements        *string    `json:"requirements"`
	Benefits            *string    `json:"benefits"`
	JobType             *string    `json:"job_type"`
	ExperienceLevel     *string    `json:"experience_level"`
	Category            *string    `json:"category"`
	SkillsRequired      *string    `json:"skills_required"`
	SalaryMin           *float64   `json:"salary_min"`
	SalaryMax           *float64   `json:"salary_max"`
	SalaryCurrency      *string    `json:"salary_currency"`
	SalaryType          *string    `json:"salary_type"`
	LocationID          *uint      `json:"location_id"`
	IsRemote            *bool      `json:"is_remote"`
	RemoteType          *string    `json:"remote_type"`
	Status              *string    `json:"status"`
	ApplicationDeadline *time.Time `json:"application_deadline"`
	MetaDescription     *string    `json:"meta_description"`

	// ClearLocation/ClearDeadline 置为 true 时清空对应字段，优先于同名取值。
	ClearLocation bool `json:"clear_location"`
	ClearDeadline bool `json:"clear_application_deadline"`
}

// ViewMeta 记录浏览来源。
type ViewMeta struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Source    string
}

// JobDetail 职位详情及当前用户视角的状态。
type JobDetail struct {
	Job              JobSummary         `json:"job"`
	ApplicationCount int64              `json:"application_count"`
	UserApplication  *model.Application `json:"user_application"`
	IsSaved          bool               `json:"is_saved"`
	CanEdit          bool               `json:"can_edit"`
	CanApply         bool               `json:"can_apply"`
}

// ListInput 公开职位列表的筛选与分页参数。
type ListInput struct {
	Search          string   `form:"search"`
	JobType         string   `form:"job_type"`
	ExperienceLevel string   `form:"experience_level"`
	Category        string   `form:"category"`
	LocationID      uint     `form:"location_id"`
	IsRemote        *bool    `form:"is_remote"`
	RemoteType      string   `form:"remote_type"`
	MinSalary       *float64 `form:"min_salary"`
	MaxSalary       *float64 `form:"max_salary"`
	Page            int      `form:"page"`
	PageSize        int      `form:"page_size"`
}

// ListResult 职位列表结果。
type ListResult struct {
	Jobs     []JobSummary         `json:"results"`
	Total    int64                `json:"count"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Stats    storage.JobListStats `json:"stats"`
}

// MyJobStats 发布人自己的职位统计。
type MyJobStats struct {
	TotalJobs         int64 `json:"total_jobs"`
	ActiveJobs        int64 `json:"active_jobs"`
	DraftJobs         int64 `json:"draft_jobs"`
	TotalApplications int64 `json:"total_applications"`
	TotalViews        int64 `json:"total_views"`
}

// MyJobsResult 发布人职位列表。
type MyJobsResult struct {
	Jobs  []JobSummary `json:"jobs"`
	Total int64        `json:"count"`
	Stats MyJobStats   `json:"stats"`
}

// Service 负责职位的发布、编辑、检索。
type Service struct {
	store Store
	now   func() time.Time
}

// NewService 创建职位目录服务。
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create 校验并发布一个新职位，状态缺省为 draft。
func (s *Service) Create(ctx context.Context, posterID uint, in JobInput) (*model.Job, error) {
	now := s.now()
	job := &model.Job{
		PostedByID:     posterID,
		Status:         model.JobStatusDraft,
		SalaryCurrency: "USD",
		SalaryType:     "yearly",
		RemoteType:     "no",
	}
	if err := s.apply(ctx, job, in, now, true); err != nil {
		return nil, err
	}

	base := Slugify(job.Title + "-" + job.Company)
	for attempt := 1; ; attempt++ {
		slug, err := uniqueSlug(ctx, s.store.SlugExists, base)
		if err != nil {
			return nil, err
		}
		job.ID, job.Slug = 0, slug

		err = s.store.CreateJob(ctx, job)
		if err == nil {
			break
		}
		// 并发发布可能在检查与写入之间抢占同一 slug，重新生成后再试。
		if !errors.Is(err, storage.ErrDuplicate) || attempt == maxSlugAttempts {
			return nil, err
		}
	}
	return s.store.GetJob(ctx, job.ID)
}

// Update 修改职位，仅发布人可操作。
func (s *Service) Update(ctx context.Context, userID, jobID uint, in JobInput) (*model.Job, error) {
	job, err := s.owned(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, job, in, s.now(), false); err != nil {
		return nil, err
	}
	if err := s.store.SaveJob(ctx, job); err != nil {
		return nil, err
	}
	return s.store.GetJob(ctx, job.ID)
}

// Delete 删除职位，仅发布人可操作。
func (s *Service) Delete(ctx context.Context, userID, jobID uint) error {
	if _, err := s.owned(ctx, userID, jobID); err != nil {
		return err
	}
	if err := s.store.DeleteJob(ctx, jobID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("job %d not found", jobID)
		}
		return err
	}
	return nil
}

// Get 返回职位详情，viewerID 为 0 表示匿名访问。
// 已登录的非发布人访问时记录一次浏览。
func (s *Service) Get(ctx context.Context, viewerID, jobID uint, meta ViewMeta) (*JobDetail, error) {
	job, err := s.find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if viewerID != 0 && viewerID != job.PostedByID {
		source := meta.Source
		if source == "" {
			source = "web"
		}
		if _, err := s.store.RecordJobView(ctx, &model.JobView{
			JobID:     job.ID,
			UserID:    viewerID,
			IPAddress: meta.IPAddress,
			UserAgent: meta.UserAgent,
			Referrer:  meta.Referrer,
			Source:    source,
		}); err != nil {
			return nil, err
		}
	}

	count, err := s.store.CountActiveApplications(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	detail := &JobDetail{
		Job:              summarize(*job, now),
		ApplicationCount: count,
		CanEdit:          viewerID != 0 && viewerID == job.PostedByID,
	}
	detail.Job.ApplicationCount = count

	if viewerID != 0 {
		app, err := s.store.FindApplication(ctx, job.ID, viewerID)
		if err != nil {
			return nil, err
		}
		detail.UserApplication = app
		saved, err := s.store.FindSavedJob(ctx, viewerID, job.ID)
		if err != nil {
			return nil, err
		}
		detail.IsSaved = saved != nil
		detail.CanApply = viewerID != job.PostedByID && app == nil &&
			job.Status == model.JobStatusActive && !job.IsExpiredAt(now)
	}
	return detail, nil
}

// List 返回开放中的职位（active 且未过截止时间）。
func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	page := storage.PageOf(in.Page, in.PageSize)
	opts := storage.JobQueryOptions{
		Page:            page,
		Search:          in.Search,
		JobType:         strings.TrimSpace(in.JobType),
		ExperienceLevel: strings.TrimSpace(in.ExperienceLevel),
		Category:        strings.TrimSpace(in.Category),
		LocationID:      in.LocationID,
		IsRemote:        in.IsRemote,
		RemoteType:      strings.TrimSpace(in.RemoteType),
		MinSalary:       in.MinSalary,
		MaxSalary:       in.MaxSalary,
		OpenAt:          s.now(),
	}

	jobs, total, err := s.store.ListJobs(ctx, opts)
	if err != nil {
		return ListResult{}, err
	}
	stats, err := s.store.JobStats(ctx, opts)
	if err != nil {
		return ListResult{}, err
	}

	pageNum := in.Page
	if pageNum < 1 {
		pageNum = 1
	}
	return ListResult{
		Jobs:     s.summaries(jobs),
		Total:    total,
		Page:     pageNum,
		PageSize: page.Limit,
		Stats:    stats,
	}, nil
}

// MyJobs 返回发布人的全部职位及统计。
func (s *Service) MyJobs(ctx context.Context, posterID uint, page, pageSize int) (MyJobsResult, error) {
	jobs, total, err := s.store.ListJobs(ctx, storage.JobQueryOptions{
		Page:     storage.PageOf(page, pageSize),
		PostedBy: posterID,
	})
	if err != nil {
		return MyJobsResult{}, err
	}
	counts, err := s.store.JobStatusCounts(ctx, posterID)
	if err != nil {
		return MyJobsResult{}, err
	}
	apps, views, err := s.store.PosterTotals(ctx, posterID)
	if err != nil {
		return MyJobsResult{}, err
	}

	var stats MyJobStats
	for _, n := range counts {
		stats.TotalJobs += n
	}
	stats.ActiveJobs = counts[model.JobStatusActive]
	stats.DraftJobs = counts[model.JobStatusDraft]
	stats.TotalApplications = apps
	stats.TotalViews = views

	return MyJobsResult{Jobs: s.summaries(jobs), Total: total, Stats: stats}, nil
}

// Categories 返回开放职位的分类统计。
func (s *Service) Categories(ctx context.Context) ([]storage.CategoryCount, error) {
	out, err := s.store.CategoryCounts(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []storage.CategoryCount{}
	}
	return out, nil
}

func (s *Service) summaries(jobs []model.Job) []JobSummary {
	now := s.now()
	out := make([]JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, summarize(j, now))
	}
	return out
}

func (s *Service) find(ctx context.Context, jobID uint) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("job %d not found", jobID)
	}
	return job, err
}

func (s *Service) owned(ctx context.Context, userID, jobID uint) (*model.Job, error) {
	job, err := s.find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.PostedByID != userID {
		return nil, apperr.Forbidden("only the poster can modify this job")
	}
	return job, nil
}

// apply 将输入合并到 job 并校验结果。
func (s *Service) apply(ctx context.Context, job *model.Job, in JobInput, now time.Time, creating bool) error {
	setString(&job.Title, in.Title)
	setString(&job.Company, in.Company)
	setString(&job.Description, in.Description)
	setString(&job.Requirements, in.Requirements)
	setString(&job.Benefits, in.Benefits)
	setString(&job.JobType, in.JobType)
	setString(&job.ExperienceLevel, in.ExperienceLevel)
	setString(&job.Category, in.Category)
	setString(&job.SkillsRequired, in.SkillsRequired)
	setString(&job.SalaryCurrency, in.SalaryCurrency)
	setString(&job.SalaryType, in.SalaryType)
	setString(&job.RemoteType, in.RemoteType)
	if in.SalaryMin != nil {
		job.SalaryMin = in.SalaryMin
	}
	if in.SalaryMax != nil {
		job.SalaryMax = in.SalaryMax
	}
	switch {
	case in.ClearLocation:
		job.LocationID, job.Location = nil, nil
	case in.LocationID != nil:
		job.LocationID = in.LocationID
		job.Location = nil
	}
	if in.IsRemote != nil {
		job.IsRemote = *in.IsRemote
	}
	switch {
	case in.ClearDeadline:
		job.ApplicationDeadline = nil
	case in.ApplicationDeadline != nil:
		d := in.ApplicationDeadline.UTC()
		job.ApplicationDeadline = &d
	}
	if in.Status != nil {
		st, ok := model.ParseJobStatus(*in.Status)
		if !ok {
			return apperr.Validation("unknown job status %q", *in.Status)
		}
		job.Status = st
	}

	if utf8.RuneCountInString(job.Title) < minTitleLen {
		return apperr.Validation("title must be at least %d characters", minTitleLen)
	}
	if job.Company == "" {
		return apperr.Validation("company is required")
	}
	if utf8.RuneCountInString(job.Description) < minDescriptionLen {
		return apperr.Validation("description must be at least %d characters", minDescriptionLen)
	}
	if !oneOf(job.JobType, model.JobTypes) {
		return apperr.Validation("unknown job_type %q", job.JobType)
	}
	if !oneOf(job.ExperienceLevel, model.ExperienceLevels) {
		return apperr.Validation("unknown experience_level %q", job.ExperienceLevel)
	}
	if job.Category == "" {
		return apperr.Validation("category is required")
	}
	if !oneOf(job.SalaryType, model.SalaryTypes) {
		return apperr.Validation("unknown salary_type %q", job.SalaryType)
	}
	if !oneOf(job.RemoteType, model.RemoteTypes) {
		return apperr.Validation("unknown remote_type %q", job.RemoteType)
	}
	if len(job.SalaryCurrency) != 3 {
		return apperr.Validation("salary_currency must be a 3-letter code")
	}
	job.SalaryCurrency = strings.ToUpper(job.SalaryCurrency)
	if job.SalaryMin != nil && *job.SalaryMin < 0 {
		return apperr.Validation("salary_min cannot be negative")
	}
	if job.SalaryMax != nil && *job.SalaryMax < 0 {
		return apperr.Validation("salary_max cannot be negative")
	}
	if job.SalaryMin != nil && job.SalaryMax != nil && *job.SalaryMin > *job.SalaryMax {
		return apperr.Validation("salary_min cannot be greater than salary_max")
	}

	deadlineChanged := in.ApplicationDeadline != nil
	activating := job.Status == model.JobStatusActive && (creating || in.Status != nil)
	if job.ApplicationDeadline != nil && (deadlineChanged || activating) && !job.ApplicationDeadline.After(now) {
		return apperr.Validation("application deadline must be in the future")
	}

	if job.LocationID != nil {
		if _, err := s.store.GetLocation(ctx, *job.LocationID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.Validation("location %d does not exist", *job.LocationID)
			}
			return err
		}
	}

	if in.MetaDescription != nil {
		job.MetaDescription = truncateRunes(strings.TrimSpace(*in.MetaDescription), metaDescriptionLimit)
	}
	if job.MetaDescription == "" || (in.Description != nil && in.MetaDescription == nil) {
		job.MetaDescription = MetaDescription(job.Description)
	}
	if job.Status == model.JobStatusActive && job.PublishedAt == nil {
		published := now
		job.PublishedAt = &published
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
