package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"

	"gorm.io/datatypes"
)

const (
	DefaultTimelineDays = 30
	MaxTimelineDays     = 365

	recentApplications = 5
	recentJobs         = 3
	maxRecentActivity  = 10
)

// Store 定义统计所需的只读查询与仪表盘写入接口。
type Store interface {
	ApplicationStatusCounts(ctx context.Context, applicantID uint) (map[model.ApplicationStatus]int64, error)
	JobStatusCounts(ctx context.Context, posterID uint) (map[model.JobStatus]int64, error)
	PosterTotals(ctx context.Context, posterID uint) (applications, views int64, err error)
	RecentApplications(ctx context.Context, applicantID uint, limit int) ([]model.Application, error)
	RecentJobs(ctx context.Context, posterID uint, limit int) ([]model.Job, error)
	ApplicationTimes(ctx context.Context, applicantID uint, since time.Time) ([]time.Time, error)
	JobPostTimes(ctx context.Context, posterID uint, since time.Time) ([]time.Time, error)
	GetOrCreateDashboard(ctx context.Context, userID uint) (*model.Dashboard, error)
	SaveDashboardStats(ctx context.Context, d *model.Dashboard) error
	SaveDashboardPreferences(ctx context.Context, d *model.Dashboard) error
	ListActiveUserIDs(ctx context.Context) ([]uint, error)
}

// Activity 最近动态条目。
type Activity struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Link        string    `json:"link"`
	Timestamp   time.Time `json:"timestamp"`
}

// TimelinePoint 某一天的投递数与发布数。
type TimelinePoint struct {
	Date         string `json:"date"`
	Applications int64  `json:"applications"`
	JobPosts     int64  `json:"job_posts"`
}

// Timeline 活动时间线。
type Timeline struct {
	Points     []TimelinePoint `json:"timeline"`
	PeriodDays int             `json:"period_days"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
}

// DashboardView 仪表盘详情。
type DashboardView struct {
	Dashboard      *model.Dashboard `json:"dashboard"`
	Summary        Summary          `json:"summary"`
	RecentActivity []Activity       `json:"recent_activity"`
}

// PreferencesUpdate 仪表盘布局与通知偏好的修改请求。
type PreferencesUpdate struct {
	Layout                  map[string]any `json:"dashboard_layout"`
	NotificationPreferences map[string]any `json:"notification_preferences"`
}

var layoutSections = map[string]bool{
	"widgets": true, "layout": true, "theme": true, "sidebar_collapsed": true,
	"default_view": true, "quick_actions": true, "notifications_panel": true,
}

// Service 每次读取时按源数据重算统计并写回快照。
type Service struct {
	store Store
	now   func() time.Time
}

// NewService 创建统计服务。
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Refresh 重算用户统计并保存快照。
func (s *Service) Refresh(ctx context.Context, userID uint) (*model.Dashboard, Summary, error) {
	appCounts, err := s.store.ApplicationStatusCounts(ctx, userID)
	if err != nil {
		return nil, Summary{}, err
	}
	jobCounts, err := s.store.JobStatusCounts(ctx, userID)
	if err != nil {
		return nil, Summary{}, err
	}
	received, views, err := s.store.PosterTotals(ctx, userID)
	if err != nil {
		return nil, Summary{}, err
	}
	d, err := s.store.GetOrCreateDashboard(ctx, userID)
	if err != nil {
		return nil, Summary{}, err
	}

	now := s.now()
	seeker := seekerFromCounts(appCounts)
	employer := employerFromCounts(jobCounts, received, views)
	applySnapshot(d, seeker, employer, now)
	if err := s.store.SaveDashboardStats(ctx, d); err != nil {
		return nil, Summary{}, err
	}

	return d, Summary{
		Seeker:        seeker,
		Employer:      employer,
		ActivityLevel: ActivityLevel(*d),
		LastUpdated:   now,
	}, nil
}

// RefreshAll 重算所有活跃用户的仪表盘，返回成功数量。
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListActiveUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, _, err := s.Refresh(ctx, id); err != nil {
			return done, fmt.Errorf("refresh dashboard for user %d: %w", id, err)
		}
		done++
	}
	return done, nil
}

// Dashboard 返回仪表盘、汇总与最近动态。
func (s *Service) Dashboard(ctx context.Context, userID uint) (DashboardView, error) {
	d, summary, err := s.Refresh(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}
	recent, err := s.RecentActivity(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}
	return DashboardView{Dashboard: d, Summary: summary, RecentActivity: recent}, nil
}

// Summary 返回汇总统计。
func (s *Service) Summary(ctx context.Context, userID uint) (Summary, error) {
	_, summary, err := s.Refresh(ctx, userID)
	return summary, err
}

// Performance 返回绩效指标。
func (s *Service) Performance(ctx context.Context, userID uint) (Performance, error) {
	d, _, err := s.Refresh(ctx, userID)
	if err != nil {
		return Performance{}, err
	}
	return performanceOf(*d, s.now()), nil
}

// Timeline 返回最近 days 天（含今天）每天的投递数与发布数，days 为 0 时取 30。
func (s *Service) Timeline(ctx context.Context, userID uint, days int) (Timeline, error) {
	if days == 0 {
		days = DefaultTimelineDays
	}
	if days < 1 || days > MaxTimelineDays {
		return Timeline{}, apperr.Validation("days must be between 1 and %d", MaxTimelineDays)
	}

	now := s.now()
	start := now.AddDate(0, 0, -days)
	apps, err := s.store.ApplicationTimes(ctx, userID, start)
	if err != nil {
		return Timeline{}, err
	}
	jobs, err := s.store.JobPostTimes(ctx, userID, start)
	if err != nil {
		return Timeline{}, err
	}
	return buildTimeline(start, now, apps, jobs, days), nil
}

func buildTimeline(start, end time.Time, apps, jobs []time.Time, days int) Timeline {
	const layout = "2006-01-02"
	appByDay := bucket(apps, layout)
	jobByDay := bucket(jobs, layout)

	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	points := make([]TimelinePoint, 0, days+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(layout)
		points = append(points, TimelinePoint{Date: key, Applications: appByDay[key], JobPosts: jobByDay[key]})
	}
	return Timeline{
		Points:     points,
		PeriodDays: days,
		StartDate:  first.Format(layout),
		EndDate:    last.Format(layout),
	}
}

func bucket(ts []time.Time, layout string) map[string]int64 {
	out := make(map[string]int64, len(ts))
	for _, t := range ts {
		out[t.UTC().Format(layout)]++
	}
	return out
}

// RecentActivity 合并最近 5 次投递与 3 个发布的职位，按时间倒序，最多 10 条。
func (s *Service) RecentActivity(ctx context.Context, userID uint) ([]Activity, error) {
	apps, err := s.store.RecentApplications(ctx, userID, recentApplications)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.RecentJobs(ctx, userID, recentJobs)
	if err != nil {
		return nil, err
	}

	out := make([]Activity, 0, len(apps)+len(jobs))
	for _, a := range apps {
		act := Activity{
			Type:      "job_application",
			Status:    string(a.Status),
			Link:      fmt.Sprintf("/jobs/%d/", a.JobID),
			Timestamp: a.AppliedAt,
		}
		if a.Job != nil {
			act.Title = "Applied to " + a.Job.Title
			act.Description = "at " + a.Job.Company
		}
		out = append(out, act)
	}
	for _, j := range jobs {
		out = append(out, Activity{
			Type:        "job_post",
			Title:       "Posted job: " + j.Title,
			Description: fmt.Sprintf("%d applications received", j.ApplicationCount),
			Status:      string(j.Status),
			Link:        fmt.Sprintf("/jobs/%d/", j.ID),
			Timestamp:   j.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Timestamp.After(out[k].Timestamp) })
	if len(out) > maxRecentActivity {
		out = out[:maxRecentActivity]
	}
	return out, nil
}

// UpdatePreferences 修改布局与通知偏好，未知布局区块或非布尔偏好视为无效。
func (s *Service) UpdatePreferences(ctx context.Context, userID uint, in PreferencesUpdate) (*model.Dashboard, error) {
	for key := range in.Layout {
		if !layoutSections[key] {
			return nil, apperr.Validation("invalid layout section: %s", key)
		}
	}
	defaults := model.DefaultNotificationPreferences()
	for key, v := range in.NotificationPreferences {
		if _, ok := defaults[key]; !ok {
			return nil, apperr.Validation("unknown notification preference: %s", key)
		}
		if _, ok := v.(bool); !ok {
			return nil, apperr.Validation("notification preference %s must be a boolean", key)
		}
	}

	d, err := s.store.GetOrCreateDashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Layout != nil {
		d.Layout = datatypes.JSONMap(in.Layout)
	}
	if in.NotificationPreferences != nil {
		prefs := datatypes.JSONMap{}
		for k, v := range d.NotificationPreferences {
			prefs[k] = v
		}
		for k, v := range in.NotificationPreferences {
			prefs[k] = v
		}
		d.NotificationPreferences = prefs
	}
	d.UpdatedAt = s.now()
	if err := s.store.SaveDashboardPreferences(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Reset 恢复默认布局与通知偏好。
func (s *Service) Reset(ctx context.Context, userID uint) (*model.Dashboard, error) {
	d, err := s.store.GetOrCreateDashboard(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Layout = datatypes.JSONMap{}
	d.NotificationPreferences = model.DefaultNotificationPreferences()
	d.UpdatedAt = s.now()
	if err := s.store.SaveDashboardPreferences(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}
