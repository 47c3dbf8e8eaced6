package catalog

import (
	"strings"
	"testing"
	"time"

	"jobsphere/internal/model"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Senior Go Engineer-Acme":       "senior-go-engineer-acme",
		"Café Développeur - ACME Inc.":  "cafe-developpeur-acme-inc",
		"  ---  ":                       "",
		"C++ / Rust (Remote) @ Initech": "c-rust-remote-initech",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlainTextAndMetaDescription(t *testing.T) {
	t.Parallel()

	got := PlainText("<p>Hello <b>world</b></p>\n\n<script>alert(1)</script><style>p{}</style> again")
	if got != "Hello world again" {
		t.Fatalf("unexpected plain text %q", got)
	}

	long := "<div>" + strings.Repeat("é", 200) + "</div>"
	meta := MetaDescription(long)
	if n := len([]rune(meta)); n != metaDescriptionLimit {
		t.Fatalf("expected %d runes, got %d", metaDescriptionLimit, n)
	}
}

func TestSalaryRange(t *testing.T) {
	t.Parallel()

	min, max := 50000.0, 80000.0
	job := model.Job{SalaryCurrency: "USD", SalaryType: "yearly", SalaryMin: &min, SalaryMax: &max}
	if got := SalaryRange(job); got != "USD 50,000 - 80,000 yearly" {
		t.Fatalf("unexpected range %q", got)
	}

	job.SalaryMax = nil
	if got := SalaryRange(job); got != "USD 50,000+ yearly" {
		t.Fatalf("unexpected open range %q", got)
	}

	job.SalaryMin = nil
	if got := SalaryRange(job); got != "Salary not specified" {
		t.Fatalf("unexpected empty range %q", got)
	}
}

func TestTimeSincePosted(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}
	cases := []struct {
		published *time.Time
		want      string
	}{
		{nil, ""},
		{at(5 * time.Minute), "5m ago"},
		{at(2 * time.Hour), "2h ago"},
		{at(30 * time.Hour), "1 day ago"},
		{at(3 * 24 * time.Hour), "3 days ago"},
		{at(10 * 24 * time.Hour), "1w ago"},
		{at(45 * 24 * time.Hour), "1mo ago"},
	}
	for _, tc := range cases {
		if got := TimeSincePosted(tc.published, now); got != tc.want {
			t.Fatalf("TimeSincePosted(%v) = %q, want %q", tc.published, got, tc.want)
		}
	}
}
