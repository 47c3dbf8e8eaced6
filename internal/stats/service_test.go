package stats

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

type statsFixture struct {
	svc    *Service
	store  *storage.Store
	poster uint
	seeker uint
}

func newStatsFixture(t *testing.T) *statsFixture {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	poster := model.User{Username: "poster", Email: "poster@example.com", IsActive: true}
	seeker := model.User{Username: "seeker", Email: "seeker@example.com", IsActive: true}
	for _, u := range []*model.User{&poster, &seeker} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
	}
	return &statsFixture{svc: NewService(store), store: store, poster: poster.ID, seeker: seeker.ID}
}

func (f *statsFixture) seed(t *testing.T, statuses []model.JobStatus, apps []model.ApplicationStatus) {
	t.Helper()

	ctx := context.Background()
	var jobIDs []uint
	for i, st := range statuses {
		job := model.Job{
			Title: fmt.Sprintf("Role %d", i), Company: "Acme", Description: "d",
			JobType: "full_time", ExperienceLevel: "mid", Category: "Technology",
			PostedByID: f.poster, Status: st, Slug: fmt.Sprintf("role-%d", i),
		}
		if err := f.store.CreateJob(ctx, &job); err != nil {
			t.Fatalf("CreateJob error: %v", err)
		}
		jobIDs = append(jobIDs, job.ID)
	}
	for i, st := range apps {
		app := model.Application{JobID: jobIDs[i%len(jobIDs)], ApplicantID: f.seeker, Status: st, AppliedAt: time.Now().UTC()}
		if err := f.store.CreateApplication(ctx, &app); err != nil {
			t.Fatalf("CreateApplication error: %v", err)
		}
	}
}

func TestServiceDashboardRecomputesAndSaves(t *testing.T) {
	t.Parallel()

	f := newStatsFixture(t)
	ctx := context.Background()
	f.seed(t,
		[]model.JobStatus{model.JobStatusActive, model.JobStatusActive, model.JobStatusFilled, model.JobStatusDraft},
		[]model.ApplicationStatus{model.ApplicationAccepted, model.ApplicationPending, model.ApplicationRejected, model.ApplicationWithdrawn},
	)

	view, err := f.svc.Dashboard(ctx, f.seeker)
	if err != nil {
		t.Fatalf("Dashboard error: %v", err)
	}
	seeker := view.Summary.Seeker
	if seeker.TotalApplications != 4 || seeker.SuccessRate != 25.0 || seeker.ActiveApplications != 1 {
		t.Fatalf("unexpected seeker summary: %+v", seeker)
	}
	if len(view.RecentActivity) != 4 || view.RecentActivity[0].Type != "job_application" {
		t.Fatalf("unexpected recent activity: %+v", view.RecentActivity)
	}

	stored, err := f.store.GetOrCreateDashboard(ctx, f.seeker)
	if err != nil {
		t.Fatalf("GetOrCreateDashboard error: %v", err)
	}
	if stored.TotalApplications != 4 || stored.AcceptedApplications != 1 || stored.StatsUpdatedAt == nil {
		t.Fatalf("snapshot not saved: %+v", stored)
	}

	employer, err := f.svc.Summary(ctx, f.poster)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	e := employer.Employer
	if e.JobsPosted != 4 || e.ActiveJobPosts != 2 || e.JobsFilled != 1 || e.ApplicationsReceived != 3 {
		t.Fatalf("unexpected employer summary: %+v", e)
	}
	if e.FillRate != 25.0 {
		t.Fatalf("unexpected fill rate %v", e.FillRate)
	}

	perf, err := f.svc.Performance(ctx, f.poster)
	if err != nil {
		t.Fatalf("Performance error: %v", err)
	}
	if perf.JobPostingEffectiveness != 0.75 {
		t.Fatalf("unexpected effectiveness %v", perf.JobPostingEffectiveness)
	}

	n, err := f.svc.RefreshAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("RefreshAll error: %v refreshed=%d", err, n)
	}
}

func TestServiceTimeline(t *testing.T) {
	t.Parallel()

	f := newStatsFixture(t)
	ctx := context.Background()
	f.seed(t, []model.JobStatus{model.JobStatusActive}, []model.ApplicationStatus{model.ApplicationPending})

	tl, err := f.svc.Timeline(ctx, f.seeker, 0)
	if err != nil {
		t.Fatalf("Timeline error: %v", err)
	}
	if tl.PeriodDays != DefaultTimelineDays || len(tl.Points) != DefaultTimelineDays+1 {
		t.Fatalf("unexpected timeline shape: days=%d points=%d", tl.PeriodDays, len(tl.Points))
	}
	today := tl.Points[len(tl.Points)-1]
	if today.Applications != 1 || today.Date != tl.EndDate {
		t.Fatalf("expected today's application counted, got %+v", today)
	}

	for _, days := range []int{-1, MaxTimelineDays + 1} {
		if _, err := f.svc.Timeline(ctx, f.seeker, days); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("days=%d: expected validation error, got %v", days, err)
		}
	}
}

func TestBuildTimelineBuckets(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 4, 9, 0, 0, 0, time.UTC)
	apps := []time.Time{start.Add(2 * time.Hour), start.Add(3 * time.Hour), end}
	jobs := []time.Time{start.Add(26 * time.Hour)}

	tl := buildTimeline(start, end, apps, jobs, 3)
	if len(tl.Points) != 4 || tl.StartDate != "2025-01-01" || tl.EndDate != "2025-01-04" {
		t.Fatalf("unexpected timeline: %+v", tl)
	}
	if tl.Points[0].Applications != 2 || tl.Points[1].JobPosts != 1 || tl.Points[3].Applications != 1 {
		t.Fatalf("unexpected buckets: %+v", tl.Points)
	}
}

func TestServiceRecentActivityLimit(t *testing.T) {
	t.Parallel()

	f := newStatsFixture(t)
	ctx := context.Background()
	statuses := make([]model.JobStatus, 8)
	apps := make([]model.ApplicationStatus, 8)
	for i := range statuses {
		statuses[i] = model.JobStatusActive
		apps[i] = model.ApplicationPending
	}
	f.seed(t, statuses, apps)

	// 同一用户既投递又发布。
	for i := 0; i < 4; i++ {
		job := model.Job{
			Title: fmt.Sprintf("Own %d", i), Company: "Self", Description: "d",
			JobType: "contract", ExperienceLevel: "lead", Category: "Ops",
			PostedByID: f.seeker, Status: model.JobStatusActive, Slug: fmt.Sprintf("own-%d", i),
		}
		if err := f.store.CreateJob(ctx, &job); err != nil {
			t.Fatalf("CreateJob error: %v", err)
		}
	}

	acts, err := f.svc.RecentActivity(ctx, f.seeker)
	if err != nil {
		t.Fatalf("RecentActivity error: %v", err)
	}
	if len(acts) != 8 {
		t.Fatalf("expected 5 applications + 3 jobs, got %d", len(acts))
	}
	for i := 1; i < len(acts); i++ {
		if acts[i].Timestamp.After(acts[i-1].Timestamp) {
			t.Fatalf("activity not sorted newest first at %d", i)
		}
	}
}

func TestServicePreferences(t *testing.T) {
	t.Parallel()

	f := newStatsFixture(t)
	ctx := context.Background()

	if _, err := f.svc.UpdatePreferences(ctx, f.seeker, PreferencesUpdate{Layout: map[string]any{"bogus": 1}}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation for unknown layout section, got %v", err)
	}
	if _, err := f.svc.UpdatePreferences(ctx, f.seeker, PreferencesUpdate{NotificationPreferences: map[string]any{model.PrefJobAlerts: "no"}}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation for non-bool preference, got %v", err)
	}

	d, err := f.svc.UpdatePreferences(ctx, f.seeker, PreferencesUpdate{
		Layout:                  map[string]any{"theme": "dark"},
		NotificationPreferences: map[string]any{model.PrefEmailNotifications: false},
	})
	if err != nil {
		t.Fatalf("UpdatePreferences error: %v", err)
	}
	if d.PreferenceEnabled(model.PrefEmailNotifications) || !d.PreferenceEnabled(model.PrefJobAlerts) {
		t.Fatalf("unexpected preferences: %+v", d.NotificationPreferences)
	}

	stored, err := f.store.GetOrCreateDashboard(ctx, f.seeker)
	if err != nil {
		t.Fatalf("GetOrCreateDashboard error: %v", err)
	}
	if stored.PreferenceEnabled(model.PrefEmailNotifications) || stored.Layout["theme"] != "dark" {
		t.Fatalf("preferences not persisted: %+v", stored)
	}

	reset, err := f.svc.Reset(ctx, f.seeker)
	if err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if !reset.PreferenceEnabled(model.PrefEmailNotifications) || len(reset.Layout) != 0 {
		t.Fatalf("expected defaults after reset: %+v", reset)
	}
}
