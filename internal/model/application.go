package model

import "time"

// ApplicationStatus 表示投递状态。
type ApplicationStatus string

const (
	ApplicationPending            ApplicationStatus = "pending"
	ApplicationReviewed           ApplicationStatus = "reviewed"
	ApplicationShortlisted        ApplicationStatus = "shortlisted"
	ApplicationInterviewScheduled ApplicationStatus = "interview_scheduled"
	ApplicationInterviewCompleted ApplicationStatus = "interview_completed"
	ApplicationOfferMade          ApplicationStatus = "offer_made"
	ApplicationAccepted           ApplicationStatus = "accepted"
	ApplicationRejected           ApplicationStatus = "rejected"
	ApplicationWithdrawn          ApplicationStatus = "withdrawn"
)

// ApplicationStatuses 按生命周期顺序列出全部状态。
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending,
	ApplicationReviewed,
	ApplicationShortlisted,
	ApplicationInterviewScheduled,
	ApplicationInterviewCompleted,
	ApplicationOfferMade,
	ApplicationAccepted,
	ApplicationRejected,
	ApplicationWithdrawn,
}

// ParseApplicationStatus 校验状态字符串。
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	for _, st := range ApplicationStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal 表示状态不再变化。
func (s ApplicationStatus) Terminal() bool {
	return s == ApplicationAccepted || s == ApplicationRejected || s == ApplicationWithdrawn
}

// ApplicationSources 列出投递来源。
var ApplicationSources = []string{"website", "mobile_app", "external", "referral"}

// Application 表示一次职位投递，(job_id, applicant_id) 唯一。
type Application struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	JobID                uint              `gorm:"uniqueIndex:idx_applications_job_applicant;not null" json:"job_id"`
	Job                  *Job              `json:"job,omitempty"`
	ApplicantID          uint              `gorm:"uniqueIndex:idx_applications_job_applicant;index;not null" json:"applicant_id"`
	Applicant            *User             `json:"-"`
	CoverLetter          string            `gorm:"type:text" json:"cover_letter"`
	ResumeRef            string            `gorm:"size:500" json:"resume_ref"`
	PortfolioURL         string            `gorm:"size:500" json:"portfolio_url"`
	Status               ApplicationStatus `gorm:"size:30;default:pending;index" json:"status"`
	Notes                string            `gorm:"type:text" json:"notes"`
	Source               string            `gorm:"size:50;default:website" json:"source"`
	LastContactDate      *time.Time        `json:"last_contact_date,omitempty"`
	InterviewScheduledAt *time.Time        `json:"interview_scheduled_at,omitempty"`
	AppliedAt            time.Time         `gorm:"index" json:"applied_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// SavedJob 表示用户收藏的职位，(user_id, job_id) 唯一。
type SavedJob struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UserID  uint      `gorm:"uniqueIndex:idx_saved_jobs_user_job;not null" json:"user_id"`
	JobID   uint      `gorm:"uniqueIndex:idx_saved_jobs_user_job;index;not null" json:"job_id"`
	Job     *Job      `json:"job,omitempty"`
	Notes   string    `gorm:"type:text" json:"notes"`
	SavedAt time.Time `gorm:"autoCreateTime;index" json:"saved_at"`
}
