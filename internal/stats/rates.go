package stats

import (
	"math"

	"jobsphere/internal/model"
)

// Round 按位数四舍五入。
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Percent 返回 part/total 的百分比（保留 1 位），total 为 0 时返回 0。
func Percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(part)/float64(total)*100, 1)
}

// Ratio 返回 part/total（保留 places 位），total 为 0 时返回 0。
func Ratio(part, total int64, places int) float64 {
	if total <= 0 {
		return 0
	}
	return Round(float64(part)/float64(total), places)
}

// SuccessRate accepted / total * 100。
func SuccessRate(total, accepted int64) float64 {
	return Percent(accepted, total)
}

// ResponseRate 已获雇主回应（reviewed、面试、accepted、rejected）的占比。
func ResponseRate(total, reviewed, interview, accepted, rejected int64) float64 {
	return Percent(reviewed+interview+accepted+rejected, total)
}

// FillRate filled / posted * 100。
func FillRate(posted, filled int64) float64 {
	return Percent(filled, posted)
}

// ActivityLevel 按仪表盘快照给出 0-10 的活跃度评分。
func ActivityLevel(d model.Dashboard) float64 {
	score := 0.0
	if d.TotalApplications > 0 {
		score += math.Min(float64(d.TotalApplications)/10, 3)
		if d.ActiveApplications > 0 {
			score++
		}
		if d.AcceptedApplications > 0 {
			score++
		}
	}
	if d.JobsPosted > 0 {
		score += math.Min(float64(d.JobsPosted)/5, 2)
		if d.ActiveJobPosts > 0 {
			score++
		}
		if d.JobsFilled > 0 {
			score++
		}
		if d.ApplicationsReceived > 0 {
			score++
		}
	}
	return Round(math.Min(score, 10), 1)
}
