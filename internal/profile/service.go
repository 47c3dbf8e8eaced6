// Package profile 维护用户资料、工作经历、个人简介与联系方式。
package profile

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"

	"gorm.io/datatypes"
)

// Store 定义资料服务所需的持久化接口。
type Store interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetOrCreateProfile(ctx context.Context, fresh *model.UserProfile) (*model.UserProfile, error)
	FindProfile(ctx context.Context, userID uint) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, p *model.UserProfile) error
	CreateExperience(ctx context.Context, e *model.Experience) error
	GetExperience(ctx context.Context, id uint) (*model.Experience, error)
	SaveExperience(ctx context.Context, e *model.Experience) error
	DeleteExperience(ctx context.Context, id uint) error
	ListExperiences(ctx context.Context, userID uint) ([]model.Experience, error)
	GetOrCreateAbout(ctx context.Context, fresh *model.About) (*model.About, error)
	SaveAbout(ctx context.Context, a *model.About) error
	GetOrCreateContact(ctx context.Context, fresh *model.Contact) (*model.Contact, error)
	FindContact(ctx context.Context, userID uint) (*model.Contact, error)
	SaveContact(ctx context.Context, c *model.Contact) error
}

const (
	maxBioLen        = 500
	maxShortFieldLen = 100
	maxURLLen        = 200
	minSummaryLen    = 50
	maxSummaryLen    = 2000
	maxYearsOfWork   = 50
)

// Completion 资料完整度。
type Completion struct {
	Percentage      int      `json:"percentage"`
	CompletedFields int      `json:"completed_fields"`
	TotalFields     int      `json:"total_fields"`
	MissingFields   []string `json:"missing_fields"`
}

// View 当前用户看到的资料。
type View struct {
	Profile    *model.UserProfile `json:"profile"`
	Completion Completion         `json:"completion"`
	CanEdit    bool               `json:"can_edit"`
}

// ProfileInput 修改资料的请求，未提供的字段保持原值。
type ProfileInput struct {
	Bio        *string `json:"bio"`
	Location   *string `json:"location"`
	Phone      *string `json:"phone"`
	Website    *string `json:"website" binding:"omitempty,url"`
	LinkedIn   *string `json:"linkedin" binding:"omitempty,url"`
	GitHub     *string `json:"github" binding:"omitempty,url"`
	IsEmployer *bool   `json:"is_employer"`
}

// ExperienceInput 新增或修改工作经历。
type ExperienceInput struct {
	Title          *string    `json:"title"`
	Company        *string    `json:"company"`
	Location       *string    `json:"location"`
	EmploymentType *string    `json:"employment_type"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	IsCurrent      *bool      `json:"is_current"`
	Description    *string    `json:"description"`
}

// ExperienceView 工作经历及持续月数。
type ExperienceView struct {
	model.Experience
	DurationMonths int `json:"duration_months"`
}

// AboutInput 修改个人简介。
type AboutInput struct {
	Summary             *string `json:"summary"`
	Skills              *string `json:"skills"`
	Interests           *string `json:"interests"`
	Languages           *string `json:"languages"`
	YearsOfExperience   *int    `json:"years_of_experience"`
	CurrentSalaryRange  *string `json:"current_salary_range"`
	ExpectedSalaryRange *string `json:"expected_salary_range"`
	Availability        *string `json:"availability"`
}

// AboutView 个人简介及拆分后的列表。
type AboutView struct {
	*model.About
	SkillsList    []string `json:"skills_list"`
	InterestsList []string `json:"interests_list"`
	LanguagesList []string `json:"languages_list"`
}

// ContactInput 修改联系方式。
type ContactInput struct {
	PrimaryEmail       *string           `json:"primary_email" binding:"omitempty,email"`
	SecondaryEmail     *string           `json:"secondary_email" binding:"omitempty,email"`
	PrimaryPhone       *string           `json:"primary_phone"`
	SecondaryPhone     *string           `json:"secondary_phone"`
	Address            *string           `json:"address"`
	City               *string           `json:"city"`
	State              *string           `json:"state"`
	PostalCode         *string           `json:"postal_code"`
	Country            *string           `json:"country"`
	AdditionalContacts map[string]string `json:"additional_contacts"`
	ShowEmail          *bool             `json:"show_email"`
	ShowPhone          *bool             `json:"show_phone"`
	ShowAddress        *bool             `json:"show_address"`
	PrivacyLevel       *string           `json:"privacy_level"`
}

// PublicContact 按隐私设置过滤后的联系方式。
type PublicContact struct {
	Email              string            `json:"email,omitempty"`
	Phone              string            `json:"phone,omitempty"`
	Address            string            `json:"address,omitempty"`
	City               string            `json:"city,omitempty"`
	Country            string            `json:"country,omitempty"`
	AdditionalContacts datatypes.JSONMap `json:"additional_contacts,omitempty"`
}

// PublicProfile 按用户名公开展示的资料。
type PublicProfile struct {
	User        *model.PublicUser `json:"user"`
	Bio         string            `json:"bio"`
	Location    string            `json:"location"`
	Website     string            `json:"website"`
	LinkedIn    string            `json:"linkedin"`
	GitHub      string            `json:"github"`
	IsEmployer  bool              `json:"is_employer"`
	IsVerified  bool              `json:"is_verified"`
	Experiences []ExperienceView  `json:"experiences"`
	About       *AboutView        `json:"about,omitempty"`
	Contact     *PublicContact    `json:"contact,omitempty"`
	Completion  Completion        `json:"completion"`
}

// Overview 各资料板块的填写情况。
type Overview struct {
	Percentage int             `json:"percentage"`
	Sections   map[string]bool `json:"sections"`
}

// Service 负责资料的读取、校验与更新。
type Service struct {
	store Store
	now   func() time.Time
}

// NewService 创建资料服务。
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Get 返回当前用户资料，首次访问时创建空资料。
func (s *Service) Get(ctx context.Context, userID uint) (View, error) {
	p, err := s.ensureProfile(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return View{Profile: p, Completion: completionOf(*p), CanEdit: true}, nil
}

// Update 修改当前用户资料。
func (s *Service) Update(ctx context.Context, userID uint, in ProfileInput) (View, error) {
	p, err := s.ensureProfile(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if err := applyProfile(p, in); err != nil {
		return View{}, err
	}
	if err := s.store.SaveProfile(ctx, p); err != nil {
		return View{}, err
	}
	return View{Profile: p, Completion: completionOf(*p), CanEdit: true}, nil
}

// Public 按用户名返回公开资料，停用的账户或资料视为不存在。
func (s *Service) Public(ctx context.Context, username string) (*PublicProfile, error) {
	username = strings.TrimSpace(username)
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("profile %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.NotFound("profile %q not found", username)
	}
	p, err := s.store.FindProfile(ctx, u.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("profile %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.NotFound("profile %q not found", username)
	}

	exps, err := s.Experiences(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	about, err := s.About(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	// 未主动填写联系方式的用户不公开任何联系信息。
	contact, err := s.store.FindContact(ctx, u.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	out := &PublicProfile{
		User:        u.Public(),
		Bio:         p.Bio,
		Location:    p.Location,
		Website:     p.Website,
		LinkedIn:    p.LinkedIn,
		GitHub:      p.GitHub,
		IsEmployer:  p.IsEmployer,
		IsVerified:  p.IsVerified,
		Experiences: exps,
		Completion:  completionOf(*p),
	}
	if contact != nil {
		out.Contact = publicContact(*contact)
	}
	if about.Summary != "" || about.Skills != "" {
		out.About = &about
	}
	return out, nil
}

// Overview 汇总六个资料板块是否已填写。
func (s *Service) Overview(ctx context.Context, userID uint) (Overview, error) {
	p, err := s.ensureProfile(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	exps, err := s.store.ListExperiences(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	about, err := s.About(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	contact, err := s.Contact(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	sections := map[string]bool{
		"basic_info":   p.Bio != "" && p.Location != "",
		"social_links": p.Website != "" || p.LinkedIn != "" || p.GitHub != "",
		"experience":   len(exps) > 0,
		"about":        about.Summary != "",
		"skills":       len(about.SkillsList) > 0,
		"contact":      contact.PrimaryPhone != "" || p.Phone != "",
	}
	done := 0
	for _, ok := range sections {
		if ok {
			done++
		}
	}
	return Overview{Percentage: done * 100 / len(sections), Sections: sections}, nil
}

// Experiences 返回用户的工作经历。
func (s *Service) Experiences(ctx context.Context, userID uint) ([]ExperienceView, error) {
	exps, err := s.store.ListExperiences(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]ExperienceView, 0, len(exps))
	for _, e := range exps {
		out = append(out, ExperienceView{Experience: e, DurationMonths: e.DurationMonths(now)})
	}
	return out, nil
}

// AddExperience 新增工作经历。
func (s *Service) AddExperience(ctx context.Context, userID uint, in ExperienceInput) (ExperienceView, error) {
	e := &model.Experience{UserID: userID, EmploymentType: "full_time"}
	if err := applyExperience(e, in); err != nil {
		return ExperienceView{}, err
	}
	if err := s.store.CreateExperience(ctx, e); err != nil {
		return ExperienceView{}, err
	}
	return ExperienceView{Experience: *e, DurationMonths: e.DurationMonths(s.now())}, nil
}

// GetExperience 返回自己的一段工作经历。
func (s *Service) GetExperience(ctx context.Context, userID, id uint) (ExperienceView, error) {
	e, err := s.ownedExperience(ctx, userID, id)
	if err != nil {
		return ExperienceView{}, err
	}
	return ExperienceView{Experience: *e, DurationMonths: e.DurationMonths(s.now())}, nil
}

// UpdateExperience 修改工作经历。
func (s *Service) UpdateExperience(ctx context.Context, userID, id uint, in ExperienceInput) (ExperienceView, error) {
	e, err := s.ownedExperience(ctx, userID, id)
	if err != nil {
		return ExperienceView{}, err
	}
	if err := applyExperience(e, in); err != nil {
		return ExperienceView{}, err
	}
	if err := s.store.SaveExperience(ctx, e); err != nil {
		return ExperienceView{}, err
	}
	return ExperienceView{Experience: *e, DurationMonths: e.DurationMonths(s.now())}, nil
}

// DeleteExperience 删除工作经历。
func (s *Service) DeleteExperience(ctx context.Context, userID, id uint) error {
	if _, err := s.ownedExperience(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteExperience(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("experience %d not found", id)
		}
		return err
	}
	return nil
}

// About 返回个人简介，首次访问时创建。
func (s *Service) About(ctx context.Context, userID uint) (AboutView, error) {
	a, err := s.store.GetOrCreateAbout(ctx, &model.About{UserID: userID})
	if err != nil {
		return AboutView{}, err
	}
	return aboutView(a), nil
}

// UpdateAbout 修改个人简介。
func (s *Service) UpdateAbout(ctx context.Context, userID uint, in AboutInput) (AboutView, error) {
	a, err := s.store.GetOrCreateAbout(ctx, &model.About{UserID: userID})
	if err != nil {
		return AboutView{}, err
	}
	if err := applyAbout(a, in); err != nil {
		return AboutView{}, err
	}
	if err := s.store.SaveAbout(ctx, a); err != nil {
		return AboutView{}, err
	}
	return aboutView(a), nil
}

// Contact 返回联系方式，首次访问时以账户邮箱创建。
func (s *Service) Contact(ctx context.Context, userID uint) (*model.Contact, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.GetOrCreateContact(ctx, defaultContact(u))
}

// UpdateContact 修改联系方式。
func (s *Service) UpdateContact(ctx context.Context, userID uint, in ContactInput) (*model.Contact, error) {
	c, err := s.Contact(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyContact(c, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveContact(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ensureProfile(ctx context.Context, userID uint) (*model.UserProfile, error) {
	return s.store.GetOrCreateProfile(ctx, &model.UserProfile{UserID: userID, IsActive: true})
}

func (s *Service) ownedExperience(ctx context.Context, userID, id uint) (*model.Experience, error) {
	e, err := s.store.GetExperience(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("experience %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, apperr.Forbidden("experience %d belongs to another user", id)
	}
	return e, nil
}

func completionOf(p model.UserProfile) Completion {
	values := p.FieldValues()
	c := Completion{TotalFields: len(model.ProfileFields), MissingFields: []string{}}
	for _, f := range model.ProfileFields {
		if strings.TrimSpace(values[f]) != "" {
			c.CompletedFields++
		} else {
			c.MissingFields = append(c.MissingFields, f)
		}
	}
	c.Percentage = c.CompletedFields * 100 / c.TotalFields
	return c
}

// defaultContact 以账户邮箱预填，但默认不公开邮箱，需用户显式开启 show_email。
func defaultContact(u *model.User) *model.Contact {
	return &model.Contact{
		UserID:             u.ID,
		PrimaryEmail:       u.Email,
		AdditionalContacts: datatypes.JSONMap{},
		ShowPhone:          true,
		PrivacyLevel:       model.PrivacyPublic,
	}
}

// publicContact minimal 只保留城市与国家，detailed 额外公开社交账号。
func publicContact(c model.Contact) *PublicContact {
	out := &PublicContact{City: c.City, Country: c.Country}
	if c.PrivacyLevel == model.PrivacyMinimal {
		return out
	}
	if c.ShowEmail {
		out.Email = c.PrimaryEmail
	}
	if c.ShowPhone {
		out.Phone = c.PrimaryPhone
	}
	if c.ShowAddress {
		out.Address = c.Address
	}
	if c.PrivacyLevel == model.PrivacyDetailed && len(c.AdditionalContacts) > 0 {
		out.AdditionalContacts = c.AdditionalContacts
	}
	return out
}

func aboutView(a *model.About) AboutView {
	return AboutView{
		About:         a,
		SkillsList:    model.SplitList(a.Skills),
		InterestsList: model.SplitList(a.Interests),
		LanguagesList: model.SplitList(a.Languages),
	}
}

func validPhone(v string) bool {
	for _, r := range v {
		if (r < '0' || r > '9') && r != ' ' && r != '-' && r != '+' {
			return false
		}
	}
	return true
}

func validLink(v string) bool {
	return v == "" || strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

func setTrimmed(dst *string, src *string, field string, limit int) error {
	if src == nil {
		return nil
	}
	v := strings.TrimSpace(*src)
	if len([]rune(v)) > limit {
		return apperr.Validation("%s must be at most %d characters", field, limit)
	}
	*dst = v
	return nil
}

func applyProfile(p *model.UserProfile, in ProfileInput) error {
	for _, f := range []struct {
		dst   *string
		src   *string
		name  string
		limit int
	}{
		{&p.Bio, in.Bio, "bio", maxBioLen},
		{&p.Location, in.Location, "location", maxShortFieldLen},
		{&p.Phone, in.Phone, "phone", 20},
		{&p.Website, in.Website, "website", maxURLLen},
		{&p.LinkedIn, in.LinkedIn, "linkedin", maxURLLen},
		{&p.GitHub, in.GitHub, "github", maxURLLen},
	} {
		if err := setTrimmed(f.dst, f.src, f.name, f.limit); err != nil {
			return err
		}
	}
	if !validPhone(p.Phone) {
		return apperr.Validation("phone may contain only digits, spaces, '-' and '+'")
	}
	for name, v := range map[string]string{"website": p.Website, "linkedin": p.LinkedIn, "github": p.GitHub} {
		if !validLink(v) {
			return apperr.Validation("%s must start with http:// or https://", name)
		}
	}
	if in.IsEmployer != nil {
		p.IsEmployer = *in.IsEmployer
	}
	return nil
}

func applyExperience(e *model.Experience, in ExperienceInput) error {
	if err := setTrimmed(&e.Title, in.Title, "title", maxShortFieldLen); err != nil {
		return err
	}
	if err := setTrimmed(&e.Company, in.Company, "company", maxShortFieldLen); err != nil {
		return err
	}
	if err := setTrimmed(&e.Location, in.Location, "location", maxShortFieldLen); err != nil {
		return err
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.EmploymentType != nil {
		e.EmploymentType = strings.TrimSpace(*in.EmploymentType)
	}
	if in.StartDate != nil {
		e.StartDate = in.StartDate.UTC()
	}
	if in.IsCurrent != nil {
		e.IsCurrent = *in.IsCurrent
		if e.IsCurrent && in.EndDate == nil {
			e.EndDate = nil
		}
	}
	if in.EndDate != nil {
		d := in.EndDate.UTC()
		e.EndDate = &d
	}

	switch {
	case e.Title == "" || e.Company == "":
		return apperr.Validation("title and company are required")
	case !slices.Contains(model.EmploymentTypes, e.EmploymentType):
		return apperr.Validation("unknown employment type %q", e.EmploymentType)
	case e.StartDate.IsZero():
		return apperr.Validation("start_date is required")
	case e.IsCurrent && e.EndDate != nil:
		return apperr.Validation("current positions cannot have an end date")
	case !e.IsCurrent && e.EndDate == nil:
		return apperr.Validation("end_date is required for past positions")
	case e.EndDate != nil && e.EndDate.Before(e.StartDate):
		return apperr.Validation("start_date must not be after end_date")
	}
	return nil
}

func applyAbout(a *model.About, in AboutInput) error {
	if err := setTrimmed(&a.Summary, in.Summary, "summary", maxSummaryLen); err != nil {
		return err
	}
	if a.Summary != "" && len([]rune(a.Summary)) < minSummaryLen {
		return apperr.Validation("summary must be at least %d characters", minSummaryLen)
	}
	for _, f := range []struct {
		dst *string
		src *string
	}{{&a.Skills, in.Skills}, {&a.Interests, in.Interests}, {&a.Languages, in.Languages}} {
		if f.src != nil {
			*f.dst = strings.Join(model.SplitList(*f.src), ", ")
		}
	}
	if in.YearsOfExperience != nil {
		if *in.YearsOfExperience < 0 || *in.YearsOfExperience > maxYearsOfWork {
			return apperr.Validation("years_of_experience must be between 0 and %d", maxYearsOfWork)
		}
		a.YearsOfExperience = *in.YearsOfExperience
	}
	if err := setTrimmed(&a.CurrentSalaryRange, in.CurrentSalaryRange, "current_salary_range", 50); err != nil {
		return err
	}
	if err := setTrimmed(&a.ExpectedSalaryRange, in.ExpectedSalaryRange, "expected_salary_range", 50); err != nil {
		return err
	}
	if in.Availability != nil {
		v := strings.TrimSpace(*in.Availability)
		if v != "" && !slices.Contains(model.Availabilities, v) {
			return apperr.Validation("unknown availability %q", v)
		}
		a.Availability = v
	}
	return nil
}

func applyContact(c *model.Contact, in ContactInput) error {
	for _, f := range []struct {
		dst   *string
		src   *string
		name  string
		limit int
	}{
		{&c.PrimaryEmail, in.PrimaryEmail, "primary_email", 254},
		{&c.SecondaryEmail, in.SecondaryEmail, "secondary_email", 254},
		{&c.PrimaryPhone, in.PrimaryPhone, "primary_phone", 20},
		{&c.SecondaryPhone, in.SecondaryPhone, "secondary_phone", 20},
		{&c.Address, in.Address, "address", 300},
		{&c.City, in.City, "city", maxShortFieldLen},
		{&c.State, in.State, "state", maxShortFieldLen},
		{&c.PostalCode, in.PostalCode, "postal_code", 20},
		{&c.Country, in.Country, "country", maxShortFieldLen},
	} {
		if err := setTrimmed(f.dst, f.src, f.name, f.limit); err != nil {
			return err
		}
	}
	if c.PrimaryEmail == "" {
		return apperr.Validation("primary_email is required")
	}
	if !validPhone(c.PrimaryPhone) || !validPhone(c.SecondaryPhone) {
		return apperr.Validation("phone numbers may contain only digits, spaces, '-' and '+'")
	}
	if in.AdditionalContacts != nil {
		extra := datatypes.JSONMap{}
		for k, v := range in.AdditionalContacts {
			if !slices.Contains(model.ContactKeys, k) {
				return apperr.Validation("unsupported contact type %q", k)
			}
			if v = strings.TrimSpace(v); v != "" {
				extra[k] = v
			}
		}
		c.AdditionalContacts = extra
	}
	if in.ShowEmail != nil {
		c.ShowEmail = *in.ShowEmail
	}
	if in.ShowPhone != nil {
		c.ShowPhone = *in.ShowPhone
	}
	if in.ShowAddress != nil {
		c.ShowAddress = *in.ShowAddress
	}
	if in.PrivacyLevel != nil {
		switch v := strings.TrimSpace(*in.PrivacyLevel); v {
		case model.PrivacyDetailed, model.PrivacyPublic, model.PrivacyMinimal:
			c.PrivacyLevel = v
		default:
			return apperr.Validation("unknown privacy level %q", v)
		}
	}
	return nil
}
