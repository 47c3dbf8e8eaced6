package stats

import (
	"time"

	"jobsphere/internal/model"
)

// SeekerStats 求职者视角统计。
type SeekerStats struct {
	TotalApplications     int64   `json:"total_applications"`
	ActiveApplications    int64   `json:"active_applications"`
	PendingApplications   int64   `json:"pending_applications"`
	ReviewedApplications  int64   `json:"reviewed_applications"`
	InterviewApplications int64   `json:"interviews_scheduled"`
	AcceptedApplications  int64   `json:"accepted_applications"`
	RejectedApplications  int64   `json:"rejected_applications"`
	WithdrawnApplications int64   `json:"withdrawn_applications"`
	SuccessRate           float64 `json:"success_rate"`
	ResponseRate          float64 `json:"response_rate"`
}

// EmployerStats 雇主视角统计。
type EmployerStats struct {
	JobsPosted           int64   `json:"jobs_posted"`
	ActiveJobPosts       int64   `json:"active_job_posts"`
	ApplicationsReceived int64   `json:"applications_received"`
	JobsFilled           int64   `json:"positions_filled"`
	TotalViews           int64   `json:"total_views"`
	FillRate             float64 `json:"fill_rate"`
	AvgApplicationsPer   float64 `json:"avg_applications_per_job"`
}

// Summary 仪表盘汇总。
type Summary struct {
	Seeker        SeekerStats   `json:"job_seeker_stats"`
	Employer      EmployerStats `json:"employer_stats"`
	ActivityLevel float64       `json:"overall_activity_level"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// Performance 绩效指标。
type Performance struct {
	ApplicationSuccessRate  float64   `json:"application_success_rate"`
	ResponseRate            float64   `json:"response_rate"`
	InterviewConversionRate float64   `json:"interview_conversion_rate"`
	JobPostingEffectiveness float64   `json:"job_posting_effectiveness"`
	CalculatedAt            time.Time `json:"calculated_at"`
}

// seekerFromCounts 由各状态投递数计算求职者统计。
func seekerFromCounts(counts map[model.ApplicationStatus]int64) SeekerStats {
	var s SeekerStats
	for st, n := range counts {
		s.TotalApplications += n
		if !st.Terminal() {
			s.ActiveApplications += n
		}
	}
	s.PendingApplications = counts[model.ApplicationPending]
	s.ReviewedApplications = counts[model.ApplicationReviewed]
	s.InterviewApplications = counts[model.ApplicationInterviewScheduled] + counts[model.ApplicationInterviewCompleted]
	s.AcceptedApplications = counts[model.ApplicationAccepted]
	s.RejectedApplications = counts[model.ApplicationRejected]
	s.WithdrawnApplications = counts[model.ApplicationWithdrawn]
	s.SuccessRate = SuccessRate(s.TotalApplications, s.AcceptedApplications)
	s.ResponseRate = ResponseRate(s.TotalApplications, s.ReviewedApplications, s.InterviewApplications,
		s.AcceptedApplications, s.RejectedApplications)
	return s
}

// employerFromCounts 由各状态职位数与收到的投递数计算雇主统计。
func employerFromCounts(counts map[model.JobStatus]int64, received, views int64) EmployerStats {
	var e EmployerStats
	for _, n := range counts {
		e.JobsPosted += n
	}
	e.ActiveJobPosts = counts[model.JobStatusActive]
	e.JobsFilled = counts[model.JobStatusFilled]
	e.ApplicationsReceived = received
	e.TotalViews = views
	e.FillRate = FillRate(e.JobsPosted, e.JobsFilled)
	e.AvgApplicationsPer = Ratio(received, e.JobsPosted, 1)
	return e
}

// applySnapshot 将统计写入仪表盘快照字段。
func applySnapshot(d *model.Dashboard, s SeekerStats, e EmployerStats, now time.Time) {
	d.TotalApplications = s.TotalApplications
	d.ActiveApplications = s.ActiveApplications
	d.PendingApplications = s.PendingApplications
	d.ReviewedApplications = s.ReviewedApplications
	d.InterviewApplications = s.InterviewApplications
	d.AcceptedApplications = s.AcceptedApplications
	d.RejectedApplications = s.RejectedApplications
	d.JobsPosted = e.JobsPosted
	d.ActiveJobPosts = e.ActiveJobPosts
	d.ApplicationsReceived = e.ApplicationsReceived
	d.JobsFilled = e.JobsFilled
	d.StatsUpdatedAt = &now
	d.UpdatedAt = now
}

// performanceOf 由快照计算绩效指标。
func performanceOf(d model.Dashboard, now time.Time) Performance {
	return Performance{
		ApplicationSuccessRate:  SuccessRate(d.TotalApplications, d.AcceptedApplications),
		ResponseRate:            ResponseRate(d.TotalApplications, d.ReviewedApplications, d.InterviewApplications, d.AcceptedApplications, d.RejectedApplications),
		InterviewConversionRate: Percent(d.InterviewApplications, d.ReviewedApplications),
		JobPostingEffectiveness: Ratio(d.ApplicationsReceived, d.JobsPosted, 2),
		CalculatedAt:            now,
	}
}
