package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/notifier"
	"jobsphere/internal/storage"
)

var coverLetter60 = strings.Repeat("Excited to apply! ", 4)[:60]

var jobSeq atomic.Int64

type fixture struct {
	svc     *Service
	store   *storage.Store
	emitter *stubEmitter
	poster  uint
	seeker  uint
	other   uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "lifecycle.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	ids := make([]uint, 0, 3)
	for _, name := range []string{"poster", "seeker", "other"} {
		u := model.User{Username: name, Email: name + "@example.com", IsActive: true}
		if err := store.CreateUser(ctx, &u); err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
		ids = append(ids, u.ID)
	}

	emitter := &stubEmitter{}
	svc := NewService(store, emitter, log.New(io.Discard, "", 0))
	return &fixture{svc: svc, store: store, emitter: emitter, poster: ids[0], seeker: ids[1], other: ids[2]}
}

func (f *fixture) job(t *testing.T, status model.JobStatus, deadline *time.Time) model.Job {
	t.Helper()

	job := model.Job{
		Title:               "Platform Engineer",
		Company:             "Initech",
		Description:         "Keep the lights on",
		JobType:             "full_time",
		ExperienceLevel:     "senior",
		Category:            "Technology",
		PostedByID:          f.poster,
		Status:              status,
		ApplicationDeadline: deadline,
		Slug:                fmt.Sprintf("platform-engineer-%d", jobSeq.Add(1)),
	}
	if err := f.store.CreateJob(context.Background(), &job); err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}
	return job
}

func (f *fixture) application(t *testing.T, jobID uint, status model.ApplicationStatus) model.Application {
	t.Helper()

	app := model.Application{JobID: jobID, ApplicantID: f.seeker, Status: status, AppliedAt: time.Now().UTC()}
	if err := f.store.CreateApplication(context.Background(), &app); err != nil {
		t.Fatalf("CreateApplication error: %v", err)
	}
	return app
}

func in(d time.Duration) *time.Time {
	v := time.Now().UTC().Add(d)
	return &v
}

func TestApplyCreatesPendingApplication(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	job := f.job(t, model.JobStatusActive, in(24*time.Hour))

	app, err := f.svc.Apply(context.Background(), ApplyInput{JobID: job.ID, ApplicantID: f.seeker, CoverLetter: "  " + coverLetter60 + "  "})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if app.Status != model.ApplicationPending || app.Source != "website" {
		t.Fatalf("unexpected application: %+v", app)
	}
	if app.CoverLetter != coverLetter60 {
		t.Fatalf("expected trimmed cover letter, got %q", app.CoverLetter)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].UserID != f.poster || f.emitter.events[0].Type != model.NotifyJobApplication {
		t.Fatalf("expected poster notified, got %+v", f.emitter.events)
	}

	stored, err := f.store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetJob error: %v", err)
	}
	if stored.ApplicationCount != 0 {
		t.Fatalf("apply must not touch the counter cache, got %d", stored.ApplicationCount)
	}
}

func TestApplyTwiceConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	job := f.job(t, model.JobStatusActive, in(24*time.Hour))
	ctx := context.Background()

	if _, err := f.svc.Apply(ctx, ApplyInput{JobID: job.ID, ApplicantID: f.seeker, CoverLetter: coverLetter60}); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	_, err := f.svc.Apply(ctx, ApplyInput{JobID: job.ID, ApplicantID: f.seeker, CoverLetter: coverLetter60})
	if apperr.KindOf(err) != apperr.KindConflict || apperr.Message(err) != "already applied" {
		t.Fatalf("expected Conflict already applied, got %v", err)
	}
}

func TestApplyDuplicateInsertMapsToConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	job := f.job(t, model.JobStatusActive, nil)
	f.application(t, job.ID, model.ApplicationPending)

	racy := NewService(blindStore{f.store}, nil, log.New(io.Discard, "", 0))
	_, err := racy.Apply(context.Background(), ApplyInput{JobID: job.ID, ApplicantID: f.seeker})
	if apperr.KindOf(err) != apperr.KindConflict || apperr.Message(err) != "already applied" {
		t.Fatalf("expected Conflict from unique index, got %v", err)
	}
}

func TestApplyEligibilityOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	open := f.job(t, model.JobStatusActive, in(time.Hour))
	past := f.job(t, model.JobStatusActive, in(-time.Hour))
	draft := f.job(t, model.JobStatusDraft, in(-time.Hour))

	cases := []struct {
		name    string
		input   ApplyInput
		kind    apperr.Kind
		message string
	}{
		{"missing job", ApplyInput{JobID: 9999, ApplicantID: f.seeker}, apperr.KindNotFound, ""},
		{"inactive before deadline", ApplyInput{JobID: draft.ID, ApplicantID: f.poster}, apperr.KindRejected, "not accepting applications"},
		{"own job before deadline", ApplyInput{JobID: past.ID, ApplicantID: f.poster}, apperr.KindRejected, "cannot apply to own job"},
		{"deadline passed", ApplyInput{JobID: past.ID, ApplicantID: f.seeker, CoverLetter: coverLetter60}, apperr.KindRejected, "deadline passed"},
		{"short cover letter", ApplyInput{JobID: open.ID, ApplicantID: f.seeker, CoverLetter: "too short"}, apperr.KindValidation, ""},
		{"blank cover letter", ApplyInput{JobID: open.ID, ApplicantID: f.seeker, CoverLetter: "   "}, apperr.KindValidation, ""},
		{"bad portfolio", ApplyInput{JobID: open.ID, ApplicantID: f.seeker, PortfolioURL: "ftp://example.com"}, apperr.KindValidation, ""},
		{"bad source", ApplyInput{JobID: open.ID, ApplicantID: f.seeker, Source: "carrier pigeon"}, apperr.KindValidation, ""},
	}
	for _, tc := range cases {
		_, err := f.svc.Apply(ctx, tc.input)
		if apperr.KindOf(err) != tc.kind {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
		if tc.message != "" && apperr.Message(err) != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, apperr.Message(err))
		}
	}
	if len(f.emitter.events) != 0 {
		t.Fatalf("rejected applies must not notify, got %d events", len(f.emitter.events))
	}

	if _, err := f.svc.Apply(ctx, ApplyInput{JobID: open.ID, ApplicantID: f.seeker, PortfolioURL: "https://me.example.com"}); err != nil {
		t.Fatalf("expected empty cover letter accepted, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	withdrawable := []model.ApplicationStatus{
		model.ApplicationPending, model.ApplicationReviewed, model.ApplicationShortlisted,
		model.ApplicationInterviewScheduled, model.ApplicationInterviewCompleted, model.ApplicationOfferMade,
	}
	for _, st := range withdrawable {
		job := f.job(t, model.JobStatusActive, nil)
		app := f.application(t, job.ID, st)
		got, err := f.svc.Withdraw(ctx, app.ID, f.seeker)
		if err != nil {
			t.Fatalf("withdraw from %s: %v", st, err)
		}
		if got.Status != model.ApplicationWithdrawn {
			t.Fatalf("withdraw from %s: status %s", st, got.Status)
		}
	}

	for _, st := range []model.ApplicationStatus{model.ApplicationAccepted, model.ApplicationRejected} {
		job := f.job(t, model.JobStatusActive, nil)
		app := f.application(t, job.ID, st)
		if _, err := f.svc.Withdraw(ctx, app.ID, f.seeker); apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("withdraw from %s: expected Conflict, got %v", st, err)
		}
		stored, err := f.store.GetApplication(ctx, app.ID)
		if err != nil {
			t.Fatalf("GetApplication error: %v", err)
		}
		if stored.Status != st {
			t.Fatalf("status changed from %s to %s", st, stored.Status)
		}
	}
}

func TestWithdrawIdempotentAndOwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	job := f.job(t, model.JobStatusActive, nil)
	app := f.application(t, job.ID, model.ApplicationPending)

	if _, err := f.svc.Withdraw(ctx, app.ID, f.other); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if _, err := f.svc.Withdraw(ctx, 9999, f.seeker); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := f.svc.Withdraw(ctx, app.ID, f.seeker); err != nil {
		t.Fatalf("Withdraw error: %v", err)
	}
	events := len(f.emitter.events)
	again, err := f.svc.Withdraw(ctx, app.ID, f.seeker)
	if err != nil || again.Status != model.ApplicationWithdrawn {
		t.Fatalf("expected idempotent withdraw, got %v err=%v", again, err)
	}
	if len(f.emitter.events) != events {
		t.Fatalf("repeated withdraw must not notify again")
	}
}

func TestTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	job := f.job(t, model.JobStatusActive, nil)
	app := f.application(t, job.ID, model.ApplicationPending)

	if _, err := f.svc.Transition(ctx, app.ID, f.seeker, TransitionInput{Status: "reviewed"}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden for applicant, got %v", err)
	}
	for _, bad := range []string{"withdrawn", "pending", "hired"} {
		if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: bad}); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("target %s: expected Validation, got %v", bad, err)
		}
	}
	if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "accepted"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict for pending->accepted, got %v", err)
	}

	notes := "strong candidate"
	reviewed, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "reviewed", Notes: &notes})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if reviewed.Status != model.ApplicationReviewed || reviewed.LastContactDate == nil || reviewed.Notes != notes {
		t.Fatalf("unexpected reviewed application: %+v", reviewed)
	}
	last := f.emitter.events[len(f.emitter.events)-1]
	if last.UserID != f.seeker || last.Type != model.NotifyApplicationStatus {
		t.Fatalf("expected applicant notified, got %+v", last)
	}

	events := len(f.emitter.events)
	if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "reviewed"}); err != nil {
		t.Fatalf("same-status transition should be a no-op, got %v", err)
	}
	if len(f.emitter.events) != events {
		t.Fatalf("no-op transition must not notify")
	}

	when := time.Now().Add(72 * time.Hour)
	scheduled, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "interview_scheduled", InterviewAt: &when})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	if scheduled.InterviewScheduledAt == nil || f.emitter.events[len(f.emitter.events)-1].Type != model.NotifyInterview {
		t.Fatalf("expected interview recorded and notified: %+v", scheduled)
	}

	if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "shortlisted"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict for backwards move, got %v", err)
	}
	for _, st := range []string{"offer_made", "accepted"} {
		if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: st}); err != nil {
			t.Fatalf("Transition to %s error: %v", st, err)
		}
	}
	if _, err := f.svc.Transition(ctx, app.ID, f.poster, TransitionInput{Status: "rejected"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict leaving terminal state, got %v", err)
	}
	if _, err := f.svc.Withdraw(ctx, app.ID, f.seeker); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected Conflict withdrawing accepted application, got %v", err)
	}
}

func TestUpdateContentAndListing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	job := f.job(t, model.JobStatusActive, nil)
	app := f.application(t, job.ID, model.ApplicationPending)

	short := "nope"
	if _, err := f.svc.UpdateContent(ctx, app.ID, f.seeker, ContentInput{CoverLetter: &short}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
	if _, err := f.svc.UpdateContent(ctx, app.ID, f.other, ContentInput{CoverLetter: &coverLetter60}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	updated, err := f.svc.UpdateContent(ctx, app.ID, f.seeker, ContentInput{CoverLetter: &coverLetter60})
	if err != nil || updated.CoverLetter != coverLetter60 {
		t.Fatalf("UpdateContent error: %v", err)
	}

	mine, err := f.svc.ListMine(ctx, f.seeker, ListInput{Status: "pending"})
	if err != nil || mine.Total != 1 {
		t.Fatalf("ListMine error: %v total=%d", err, mine.Total)
	}
	if _, err := f.svc.ListMine(ctx, f.seeker, ListInput{Status: "bogus"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected Validation for unknown status filter, got %v", err)
	}
	if _, err := f.svc.ListForJob(ctx, f.other, job.ID, ListInput{}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	incoming, err := f.svc.ListForJob(ctx, f.poster, job.ID, ListInput{})
	if err != nil || incoming.Total != 1 {
		t.Fatalf("ListForJob error: %v total=%d", err, incoming.Total)
	}
	if _, err := f.svc.Get(ctx, app.ID, f.other); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected Forbidden for stranger, got %v", err)
	}
	if _, err := f.svc.Get(ctx, app.ID, f.poster); err != nil {
		t.Fatalf("poster Get error: %v", err)
	}
}

// --- stubs ---

type stubEmitter struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (e *stubEmitter) Emit(ctx context.Context, ev notifier.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// blindStore 模拟并发投递：查重总是落空，只能依赖唯一索引。
type blindStore struct {
	*storage.Store
}

func (b blindStore) FindApplication(ctx context.Context, jobID, applicantID uint) (*model.Application, error) {
	return nil, nil
}
