package catalog

import (
	"fmt"
	"math"
	"time"

	"jobsphere/internal/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// SalaryRange 返回薪资区间文本，如 "USD 50,000 - 80,000 yearly"。
func SalaryRange(j model.Job) string {
	hasMin := j.SalaryMin != nil && *j.SalaryMin > 0
	hasMax := j.SalaryMax != nil && *j.SalaryMax > 0
	switch {
	case hasMin && hasMax:
		return fmt.Sprintf("%s %s - %s %s", j.SalaryCurrency, formatAmount(*j.SalaryMin), formatAmount(*j.SalaryMax), j.SalaryType)
	case hasMin:
		return fmt.Sprintf("%s %s+ %s", j.SalaryCurrency, formatAmount(*j.SalaryMin), j.SalaryType)
	default:
		return "Salary not specified"
	}
}

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%d", int64(math.Round(v)))
}

// TimeSincePosted 返回发布至今的简写，未发布时返回空串。
func TimeSincePosted(publishedAt *time.Time, now time.Time) string {
	if publishedAt == nil {
		return ""
	}
	d := now.Sub(*publishedAt)
	if d < 0 {
		d = 0
	}
	days := int(d.Hours() / 24)
	switch {
	case days == 0 && d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case days == 0:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case days == 1:
		return "1 day ago"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%dw ago", days/7)
	default:
		return fmt.Sprintf("%dmo ago", days/30)
	}
}

// JobSummary 职位及展示用派生字段。
type JobSummary struct {
	model.Job
	Poster          *model.PublicUser `json:"posted_by,omitempty"`
	SalaryRange     string            `json:"salary_range"`
	IsExpired       bool              `json:"is_expired"`
	TimeSincePosted string            `json:"time_since_posted,omitempty"`
}

func summarize(j model.Job, now time.Time) JobSummary {
	return JobSummary{
		Job:             j,
		Poster:          j.PostedBy.Public(),
		SalaryRange:     SalaryRange(j),
		IsExpired:       j.IsExpiredAt(now),
		TimeSincePosted: TimeSincePosted(j.PublishedAt, now),
	}
}
