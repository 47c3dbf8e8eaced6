package stats

import (
	"testing"

	"jobsphere/internal/model"
)

func TestRates(t *testing.T) {
	t.Parallel()

	if got := SuccessRate(0, 0); got != 0 {
		t.Fatalf("SuccessRate(0, 0) = %v, want 0", got)
	}
	if got := SuccessRate(4, 1); got != 25.0 {
		t.Fatalf("SuccessRate(4, 1) = %v, want 25", got)
	}
	if got := SuccessRate(3, 1); got != 33.3 {
		t.Fatalf("SuccessRate(3, 1) = %v, want 33.3", got)
	}
	if got := ResponseRate(10, 2, 3, 1, 1); got != 70.0 {
		t.Fatalf("ResponseRate = %v, want 70", got)
	}
	if got := ResponseRate(0, 0, 0, 0, 0); got != 0 {
		t.Fatalf("ResponseRate with no applications = %v, want 0", got)
	}
	if got := FillRate(3, 2); got != 66.7 {
		t.Fatalf("FillRate(3, 2) = %v, want 66.7", got)
	}
	if got := Ratio(7, 3, 2); got != 2.33 {
		t.Fatalf("Ratio(7, 3, 2) = %v, want 2.33", got)
	}
}

func TestSeekerFromCounts(t *testing.T) {
	t.Parallel()

	s := seekerFromCounts(map[model.ApplicationStatus]int64{
		model.ApplicationPending:            2,
		model.ApplicationReviewed:           1,
		model.ApplicationInterviewScheduled: 1,
		model.ApplicationInterviewCompleted: 1,
		model.ApplicationAccepted:           1,
		model.ApplicationRejected:           2,
		model.ApplicationWithdrawn:          2,
	})
	if s.TotalApplications != 10 || s.ActiveApplications != 5 || s.InterviewApplications != 2 {
		t.Fatalf("unexpected seeker stats: %+v", s)
	}
	if s.SuccessRate != 10.0 || s.ResponseRate != 60.0 {
		t.Fatalf("unexpected rates: success=%v response=%v", s.SuccessRate, s.ResponseRate)
	}
}

func TestActivityLevel(t *testing.T) {
	t.Parallel()

	if got := ActivityLevel(model.Dashboard{}); got != 0 {
		t.Fatalf("empty dashboard level = %v, want 0", got)
	}
	busy := model.Dashboard{
		TotalApplications: 50, ActiveApplications: 3, AcceptedApplications: 1,
		JobsPosted: 20, ActiveJobPosts: 2, JobsFilled: 1, ApplicationsReceived: 9,
	}
	if got := ActivityLevel(busy); got != 10 {
		t.Fatalf("busy dashboard level = %v, want 10", got)
	}
	seeker := model.Dashboard{TotalApplications: 5, ActiveApplications: 1}
	if got := ActivityLevel(seeker); got != 1.5 {
		t.Fatalf("seeker level = %v, want 1.5", got)
	}
}
