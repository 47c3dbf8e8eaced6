package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/notifier"
	"jobsphere/internal/storage"
)

const minCoverLetterLen = 50

// Store 定义投递流程所需的持久化接口。
type Store interface {
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	FindApplication(ctx context.Context, jobID, applicantID uint) (*model.Application, error)
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id uint) (*model.Application, error)
	SaveApplication(ctx context.Context, app *model.Application) error
	ListApplications(ctx context.Context, q storage.ApplicationQuery) ([]model.Application, int64, error)
}

// Emitter 投递通知事件。
type Emitter interface {
	Emit(ctx context.Context, ev notifier.Event) error
}

// ApplyInput 求职者投递请求。
type ApplyInput struct {
	JobID        uint   `json:"job_id"`
	ApplicantID  uint   `json:"-"`
	CoverLetter  string `json:"cover_letter"`
	PortfolioURL string `json:"portfolio_url"`
	ResumeRef    string `json:"resume_ref"`
	Source       string `json:"source"`
}

// TransitionInput 雇主变更投递状态的请求。
type TransitionInput struct {
	Status      string     `json:"status"`
	Notes       *string    `json:"notes"`
	InterviewAt *time.Time `json:"interview_scheduled_at"`
}

// ContentInput 求职者修改投递内容的请求。
type ContentInput struct {
	CoverLetter  *string `json:"cover_letter"`
	PortfolioURL *string `json:"portfolio_url"`
	ResumeRef    *string `json:"resume_ref"`
}

// ListInput 投递列表筛选。
type ListInput struct {
	Status   string `form:"status"`
	JobType  string `form:"job_type"`
	Category string `form:"category"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ApplicationView 列表中的投递，申请人只暴露公开信息。
type ApplicationView struct {
	model.Application
	Applicant *model.PublicUser `json:"applicant,omitempty"`
}

// ListResult 投递列表结果。
type ListResult struct {
	Applications []ApplicationView `json:"results"`
	Total        int64             `json:"count"`
}

// Service 负责投递的资格校验、创建、撤回与状态流转。
type Service struct {
	store   Store
	emitter Emitter
	logger  *log.Logger
	now     func() time.Time
}

// NewService 创建投递服务，emitter 可为 nil。
func NewService(store Store, emitter Emitter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stdout, "[lifecycle] ", log.LstdFlags)
	}
	return &Service{
		store:   store,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Apply 校验资格后创建投递，按顺序检查，第一个失败即返回。
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*model.Application, error) {
	job, err := s.store.GetJob(ctx, in.JobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("job %d not found", in.JobID)
	}
	if err != nil {
		return nil, err
	}
	now := s.now()

	if job.Status != model.JobStatusActive {
		return nil, apperr.Rejected("not accepting applications")
	}
	if job.PostedByID == in.ApplicantID {
		return nil, apperr.Rejected("cannot apply to own job")
	}
	if job.IsExpiredAt(now) {
		return nil, apperr.Rejected("deadline passed")
	}
	existing, err := s.store.FindApplication(ctx, job.ID, in.ApplicantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("already applied")
	}

	coverLetter, err := checkCoverLetter(in.CoverLetter)
	if err != nil {
		return nil, err
	}
	portfolio, err := checkPortfolioURL(in.PortfolioURL)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "website"
	}
	if !oneOf(source, model.ApplicationSources) {
		return nil, apperr.Validation("unknown source %q", source)
	}

	app := &model.Application{
		JobID:        job.ID,
		ApplicantID:  in.ApplicantID,
		CoverLetter:  coverLetter,
		PortfolioURL: portfolio,
		ResumeRef:    strings.TrimSpace(in.ResumeRef),
		Source:       source,
		Status:       model.ApplicationPending,
		AppliedAt:    now,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.Conflict("already applied")
		}
		return nil, err
	}
	app.Job = job

	applicant := fmt.Sprintf("user %d", in.ApplicantID)
	if u, err := s.store.GetUser(ctx, in.ApplicantID); err == nil {
		applicant = u.DisplayName()
	}
	s.emit(ctx, notifier.Event{
		UserID:            job.PostedByID,
		Type:              model.NotifyJobApplication,
		Title:             "New application for " + job.Title,
		Message:           fmt.Sprintf("%s applied to %s at %s.", applicant, job.Title, job.Company),
		ActionURL:         fmt.Sprintf("/applications/%d", app.ID),
		RelatedObjectType: "application",
		RelatedObjectID:   app.ID,
		Metadata:          map[string]any{"job_id": job.ID, "applicant_id": in.ApplicantID},
	})
	return app, nil
}

// Withdraw 由求职者撤回投递，已撤回时直接返回。
func (s *Service) Withdraw(ctx context.Context, applicationID, userID uint) (*model.Application, error) {
	app, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID {
		return nil, apperr.Forbidden("only the applicant can withdraw this application")
	}
	switch app.Status {
	case model.ApplicationWithdrawn:
		return app, nil
	case model.ApplicationAccepted, model.ApplicationRejected:
		return nil, apperr.Conflict("cannot withdraw application with status %s", app.Status)
	}

	app.Status = model.ApplicationWithdrawn
	app.UpdatedAt = s.now()
	if err := s.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	if app.Job != nil {
		s.emit(ctx, notifier.Event{
			UserID:            app.Job.PostedByID,
			Type:              model.NotifyApplicationStatus,
			Title:             "Application withdrawn",
			Message:           fmt.Sprintf("An applicant withdrew from %s.", app.Job.Title),
			ActionURL:         fmt.Sprintf("/jobs/%d/applications", app.JobID),
			RelatedObjectType: "application",
			RelatedObjectID:   app.ID,
		})
	}
	return app, nil
}

// Transition 由职位发布人推进投递状态。
func (s *Service) Transition(ctx context.Context, applicationID, userID uint, in TransitionInput) (*model.Application, error) {
	app, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Job == nil || app.Job.PostedByID != userID {
		return nil, apperr.Forbidden("only the job poster can change application status")
	}
	to, ok := model.ParseApplicationStatus(strings.TrimSpace(in.Status))
	if !ok {
		return nil, apperr.Validation("unknown application status %q", in.Status)
	}
	if !employerTarget(to) {
		return nil, apperr.Validation("status %s cannot be set by the employer", to)
	}

	now := s.now()
	if to == app.Status {
		if in.Notes == nil {
			return app, nil
		}
		app.Notes = strings.TrimSpace(*in.Notes)
		app.UpdatedAt = now
		if err := s.store.SaveApplication(ctx, app); err != nil {
			return nil, err
		}
		return app, nil
	}
	if !CanTransition(app.Status, to) {
		return nil, apperr.Conflict("cannot move application from %s to %s", app.Status, to)
	}

	app.Status = to
	app.LastContactDate = &now
	app.UpdatedAt = now
	if in.Notes != nil {
		app.Notes = strings.TrimSpace(*in.Notes)
	}
	if to == model.ApplicationInterviewScheduled && in.InterviewAt != nil {
		at := in.InterviewAt.UTC()
		app.InterviewScheduledAt = &at
	}
	if err := s.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	s.emit(ctx, statusEvent(app))
	return app, nil
}

// UpdateContent 求职者在投递未结束前修改求职信、作品链接或简历引用。
func (s *Service) UpdateContent(ctx context.Context, applicationID, userID uint, in ContentInput) (*model.Application, error) {
	app, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID {
		return nil, apperr.Forbidden("only the applicant can edit this application")
	}
	if app.Status.Terminal() {
		return nil, apperr.Conflict("cannot edit application with status %s", app.Status)
	}

	if in.CoverLetter != nil {
		cl, err := checkCoverLetter(*in.CoverLetter)
		if err != nil {
			return nil, err
		}
		app.CoverLetter = cl
	}
	if in.PortfolioURL != nil {
		p, err := checkPortfolioURL(*in.PortfolioURL)
		if err != nil {
			return nil, err
		}
		app.PortfolioURL = p
	}
	if in.ResumeRef != nil {
		app.ResumeRef = strings.TrimSpace(*in.ResumeRef)
	}
	app.UpdatedAt = s.now()
	if err := s.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Get 返回投递，仅求职者本人或职位发布人可见。
func (s *Service) Get(ctx context.Context, applicationID, userID uint) (*model.Application, error) {
	app, err := s.find(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicantID != userID && (app.Job == nil || app.Job.PostedByID != userID) {
		return nil, apperr.Forbidden("application %d is not visible to you", applicationID)
	}
	return app, nil
}

// ListMine 返回求职者自己的投递。
func (s *Service) ListMine(ctx context.Context, applicantID uint, in ListInput) (ListResult, error) {
	q := storage.ApplicationQuery{
		Page:        storage.PageOf(in.Page, in.PageSize),
		ApplicantID: applicantID,
		JobType:     strings.TrimSpace(in.JobType),
		Category:    strings.TrimSpace(in.Category),
	}
	if err := setStatusFilter(&q, in.Status); err != nil {
		return ListResult{}, err
	}
	return s.list(ctx, q)
}

// ListForJob 返回某职位收到的投递，仅发布人可查看。
func (s *Service) ListForJob(ctx context.Context, userID, jobID uint, in ListInput) (ListResult, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return ListResult{}, apperr.NotFound("job %d not found", jobID)
	}
	if err != nil {
		return ListResult{}, err
	}
	if job.PostedByID != userID {
		return ListResult{}, apperr.Forbidden("only the job poster can list its applications")
	}
	q := storage.ApplicationQuery{Page: storage.PageOf(in.Page, in.PageSize), JobID: jobID}
	if err := setStatusFilter(&q, in.Status); err != nil {
		return ListResult{}, err
	}
	return s.list(ctx, q)
}

func (s *Service) list(ctx context.Context, q storage.ApplicationQuery) (ListResult, error) {
	apps, total, err := s.store.ListApplications(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	views := make([]ApplicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, ApplicationView{Application: a, Applicant: a.Applicant.Public()})
	}
	return ListResult{Applications: views, Total: total}, nil
}

func (s *Service) find(ctx context.Context, id uint) (*model.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("application %d not found", id)
	}
	return app, err
}

// emit 在写入成功后投递通知，失败只记日志。
func (s *Service) emit(ctx context.Context, ev notifier.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, ev); err != nil {
		s.logger.Printf("emit %s to user %d: %v", ev.Type, ev.UserID, err)
	}
}

func statusEvent(app *model.Application) notifier.Event {
	title := "your application"
	if app.Job != nil {
		title = app.Job.Title
	}
	ev := notifier.Event{
		UserID:            app.ApplicantID,
		Type:              model.NotifyApplicationStatus,
		Priority:          model.PriorityNormal,
		Title:             "Application status updated",
		Message:           fmt.Sprintf("Your application for %s is now %s.", title, strings.ReplaceAll(string(app.Status), "_", " ")),
		ActionURL:         fmt.Sprintf("/applications/%d", app.ID),
		RelatedObjectType: "application",
		RelatedObjectID:   app.ID,
		Metadata:          map[string]any{"status": string(app.Status)},
	}
	switch app.Status {
	case model.ApplicationInterviewScheduled:
		ev.Type = model.NotifyInterview
		ev.Priority = model.PriorityHigh
		ev.Title = "Interview scheduled"
		if app.InterviewScheduledAt != nil {
			ev.Metadata["interview_scheduled_at"] = app.InterviewScheduledAt.Format(time.RFC3339)
		}
	case model.ApplicationOfferMade, model.ApplicationAccepted:
		ev.Priority = model.PriorityHigh
	}
	return ev
}

func setStatusFilter(q *storage.ApplicationQuery, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	st, ok := model.ParseApplicationStatus(raw)
	if !ok {
		return apperr.Validation("unknown application status %q", raw)
	}
	q.Status = st
	return nil
}

// checkCoverLetter 非空求职信去除首尾空白后至少 50 个字符。
func checkCoverLetter(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	trimmed := strings.TrimSpace(raw)
	if utf8.RuneCountInString(trimmed) < minCoverLetterLen {
		return "", apperr.Validation("cover letter must be at least %d characters", minCoverLetterLen)
	}
	return trimmed, nil
}

func checkPortfolioURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Validation("portfolio_url must be an absolute http(s) URL")
	}
	return raw, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
