package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// UserProfile 用户的公开资料，首次读取时自动创建。
type UserProfile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User       *User     `json:"-"`
	Bio        string    `gorm:"size:500" json:"bio"`
	Location   string    `gorm:"size:100" json:"location"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Website    string    `gorm:"size:200" json:"website"`
	LinkedIn   string    `gorm:"size:200" json:"linkedin"`
	GitHub     string    `gorm:"size:200" json:"github"`
	IsEmployer bool      `json:"is_employer"`
	IsActive   bool      `gorm:"index" json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileFields 参与资料完整度计算的字段。
var ProfileFields = []string{"bio", "location", "phone", "website", "linkedin", "github"}

// FieldValues 返回完整度字段的当前值。
func (p UserProfile) FieldValues() map[string]string {
	return map[string]string{
		"bio":      p.Bio,
		"location": p.Location,
		"phone":    p.Phone,
		"website":  p.Website,
		"linkedin": p.LinkedIn,
		"github":   p.GitHub,
	}
}

// EmploymentTypes 工作经历的雇佣类型。
var EmploymentTypes = []string{"full_time", "part_time", "contract", "internship", "freelance"}

// Experience 一段工作经历，按开始时间倒序展示。
type Experience struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index;not null" json:"user_id"`
	Title          string     `gorm:"size:100;not null" json:"title"`
	Company        string     `gorm:"size:100;not null" json:"company"`
	Location       string     `gorm:"size:100" json:"location"`
	EmploymentType string     `gorm:"size:20" json:"employment_type"`
	StartDate      time.Time  `gorm:"index" json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	IsCurrent      bool       `json:"is_current"`
	Description    string     `gorm:"type:text" json:"description"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DurationMonths 返回经历持续的月数，在职时截至 now，至少为 1。
func (e Experience) DurationMonths(now time.Time) int {
	end := now
	if e.EndDate != nil && !e.IsCurrent {
		end = *e.EndDate
	}
	months := (end.Year()-e.StartDate.Year())*12 + int(end.Month()) - int(e.StartDate.Month())
	if months < 1 {
		return 1
	}
	return months
}

// Availabilities 求职状态取值。
var Availabilities = []string{"immediately", "two_weeks", "one_month", "negotiable", "not_looking"}

// About 个人简介与技能。Skills/Interests/Languages 以逗号分隔存储。
type About struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Summary             string    `gorm:"type:text" json:"summary"`
	Skills              string    `gorm:"type:text" json:"skills"`
	Interests           string    `gorm:"type:text" json:"interests"`
	Languages           string    `gorm:"size:500" json:"languages"`
	YearsOfExperience   int       `json:"years_of_experience"`
	CurrentSalaryRange  string    `gorm:"size:50" json:"current_salary_range"`
	ExpectedSalaryRange string    `gorm:"size:50" json:"expected_salary_range"`
	Availability        string    `gorm:"size:20" json:"availability"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SplitList 拆分逗号列表，去掉空项。
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// 联系方式的隐私级别。
const (
	PrivacyDetailed = "detailed"
	PrivacyPublic   = "public"
	PrivacyMinimal  = "minimal"
)

// ContactKeys 允许出现在 AdditionalContacts 中的键。
var ContactKeys = []string{"twitter", "facebook", "instagram", "telegram", "whatsapp", "skype", "discord", "other"}

// Contact 联系方式及对外展示开关。
type Contact struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"uniqueIndex;not null" json:"user_id"`
	PrimaryEmail       string            `gorm:"size:254" json:"primary_email"`
	SecondaryEmail     string            `gorm:"size:254" json:"secondary_email"`
	PrimaryPhone       string            `gorm:"size:20" json:"primary_phone"`
	SecondaryPhone     string            `gorm:"size:20" json:"secondary_phone"`
	Address            string            `gorm:"size:300" json:"address"`
	City               string            `gorm:"size:100" json:"city"`
	State              string            `gorm:"size:100" json:"state"`
	PostalCode         string            `gorm:"size:20" json:"postal_code"`
	Country            string            `gorm:"size:100" json:"country"`
	AdditionalContacts datatypes.JSONMap `json:"additional_contacts"`
	ShowEmail          bool              `json:"show_email"`
	ShowPhone          bool              `json:"show_phone"`
	ShowAddress        bool              `json:"show_address"`
	PrivacyLevel       string            `gorm:"size:20" json:"privacy_level"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}
