// Package search 管理用户保存的职位检索，并为开启提醒的检索推送新职位。
package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/catalog"
	"jobsphere/internal/model"
	"jobsphere/internal/notifier"
	"jobsphere/internal/storage"

	"gorm.io/datatypes"
)

// MaxPerUser 每个用户最多保存的检索数。
const MaxPerUser = 20

const (
	maxNameLen      = 100
	maxQueryLen     = 200
	alertSampleSize = 5
)

// Store 定义保存检索所需的持久化接口。
type Store interface {
	CreateSavedSearch(ctx context.Context, ss *model.SavedSearch) error
	GetSavedSearch(ctx context.Context, id uint) (*model.SavedSearch, error)
	SaveSavedSearch(ctx context.Context, ss *model.SavedSearch) error
	DeleteSavedSearch(ctx context.Context, id uint) error
	CountSavedSearches(ctx context.Context, userID uint) (int64, error)
	ListSavedSearches(ctx context.Context, userID uint, page storage.Page) ([]model.SavedSearch, int64, error)
	TouchSavedSearch(ctx context.Context, id uint, at time.Time) error
	ListAlertingSearches(ctx context.Context) ([]model.SavedSearch, error)
	MarkSearchAlerted(ctx context.Context, id uint, at time.Time) error
	ListJobs(ctx context.Context, opts storage.JobQueryOptions) ([]model.Job, int64, error)
}

// JobSearcher 执行职位检索。
type JobSearcher interface {
	List(ctx context.Context, in catalog.ListInput) (catalog.ListResult, error)
}

// Emitter 投递站内通知。
type Emitter interface {
	Emit(ctx context.Context, ev notifier.Event) error
}

// Input 新增或修改保存的检索，未提供的字段保持原值。
type Input struct {
	Name              *string        `json:"name"`
	QueryText         *string        `json:"query_text"`
	Category          *string        `json:"category"`
	LocationID        *uint          `json:"location_id"`
	JobType           *string        `json:"job_type"`
	ExperienceLevel   *string        `json:"experience_level"`
	SalaryMin         *float64       `json:"salary_min"`
	SalaryMax         *float64       `json:"salary_max"`
	IsRemote          *bool          `json:"is_remote"`
	AdditionalFilters map[string]any `json:"additional_filters"`
	EmailAlerts       *bool          `json:"email_alerts"`
	AlertFrequency    *string        `json:"alert_frequency"`
}

// ListResult 保存的检索列表。
type ListResult struct {
	Searches []model.SavedSearch `json:"results"`
	Total    int64               `json:"count"`
}

// UseResult 执行保存的检索得到的职位。
type UseResult struct {
	Search  *model.SavedSearch `json:"search"`
	Results catalog.ListResult `json:"results"`
}

// Service 负责保存检索的增删改查、执行与提醒。
type Service struct {
	store   Store
	jobs    JobSearcher
	emitter Emitter
	logger  *log.Logger
	now     func() time.Time
}

// NewService 创建检索服务，emitter 为 nil 时不发送提醒。
func NewService(store Store, jobs JobSearcher, emitter Emitter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stdout, "[search] ", log.LstdFlags)
	}
	return &Service{
		store:   store,
		jobs:    jobs,
		emitter: emitter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create 保存一条检索，超过上限时拒绝。
func (s *Service) Create(ctx context.Context, userID uint, in Input) (*model.SavedSearch, error) {
	n, err := s.store.CountSavedSearches(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n >= MaxPerUser {
		return nil, apperr.Rejected("maximum of %d saved searches reached", MaxPerUser)
	}
	ss := &model.SavedSearch{
		UserID:            userID,
		AlertFrequency:    model.AlertDaily,
		AdditionalFilters: datatypes.JSONMap{},
	}
	if err := apply(ss, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateSavedSearch(ctx, ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// Get 返回自己保存的检索。
func (s *Service) Get(ctx context.Context, userID, id uint) (*model.SavedSearch, error) {
	return s.owned(ctx, userID, id)
}

// Update 修改保存的检索。
func (s *Service) Update(ctx context.Context, userID, id uint, in Input) (*model.SavedSearch, error) {
	ss, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(ss, in); err != nil {
		return nil, err
	}
	if err := s.store.SaveSavedSearch(ctx, ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// Delete 删除保存的检索。
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteSavedSearch(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("saved search %d not found", id)
		}
		return err
	}
	return nil
}

// List 返回用户保存的检索。
func (s *Service) List(ctx context.Context, userID uint, page, pageSize int) (ListResult, error) {
	items, total, err := s.store.ListSavedSearches(ctx, userID, storage.PageOf(page, pageSize))
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []model.SavedSearch{}
	}
	return ListResult{Searches: items, Total: total}, nil
}

// Use 按保存的条件检索开放职位，并记录一次使用。
func (s *Service) Use(ctx context.Context, userID, id uint, page, pageSize int) (UseResult, error) {
	ss, err := s.owned(ctx, userID, id)
	if err != nil {
		return UseResult{}, err
	}
	now := s.now()
	if err := s.store.TouchSavedSearch(ctx, id, now); err != nil {
		return UseResult{}, err
	}
	ss.LastUsed = &now
	ss.UseCount++

	in := listInput(*ss)
	in.Page, in.PageSize = page, pageSize
	res, err := s.jobs.List(ctx, in)
	if err != nil {
		return UseResult{}, err
	}
	return UseResult{Search: ss, Results: res}, nil
}

// SendAlerts 为到期的检索查找上次提醒后发布的新职位并通知其主人，返回发出的提醒数。
// 单条检索失败只记日志，不影响其余检索。
func (s *Service) SendAlerts(ctx context.Context, now time.Time) (int, error) {
	if s.emitter == nil {
		return 0, nil
	}
	searches, err := s.store.ListAlertingSearches(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ss := range searches {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if !ss.AlertDue(now) {
			continue
		}
		ok, err := s.alert(ctx, ss, now)
		if err != nil {
			s.logger.Printf("alert saved search %d: %v", ss.ID, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (s *Service) alert(ctx context.Context, ss model.SavedSearch, now time.Time) (bool, error) {
	since := ss.CreatedAt
	if ss.LastAlertSent != nil {
		since = *ss.LastAlertSent
	}
	opts := queryOptions(ss)
	opts.OpenAt = now
	opts.PublishedAfter = since
	opts.ExcludePostedBy = ss.UserID
	opts.Page = storage.Page{Limit: alertSampleSize}

	jobs, total, err := s.store.ListJobs(ctx, opts)
	if err != nil {
		return false, err
	}
	if err := s.store.MarkSearchAlerted(ctx, ss.ID, now); err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}

	ids := make([]uint, 0, len(jobs))
	titles := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
		titles = append(titles, fmt.Sprintf("%s at %s", j.Title, j.Company))
	}
	noun := "jobs match"
	if total == 1 {
		noun = "job matches"
	}
	err = s.emitter.Emit(ctx, notifier.Event{
		UserID:            ss.UserID,
		Type:              model.NotifyJobPosting,
		Title:             fmt.Sprintf("%d new %s %q", total, noun, ss.Name),
		Message:           strings.Join(titles, "; "),
		ActionURL:         fmt.Sprintf("/saved-searches/%d/use", ss.ID),
		RelatedObjectType: "saved_search",
		RelatedObjectID:   ss.ID,
		Metadata:          map[string]any{"job_ids": ids, "total": total},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) owned(ctx context.Context, userID, id uint) (*model.SavedSearch, error) {
	ss, err := s.store.GetSavedSearch(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("saved search %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if ss.UserID != userID {
		return nil, apperr.Forbidden("saved search %d belongs to another user", id)
	}
	return ss, nil
}

func listInput(ss model.SavedSearch) catalog.ListInput {
	return catalog.ListInput{
		Search:          ss.QueryText,
		JobType:         ss.JobType,
		ExperienceLevel: ss.ExperienceLevel,
		Category:        ss.Category,
		LocationID:      ss.LocationID,
		IsRemote:        ss.IsRemote,
		MinSalary:       ss.SalaryMin,
		MaxSalary:       ss.SalaryMax,
	}
}

func queryOptions(ss model.SavedSearch) storage.JobQueryOptions {
	return storage.JobQueryOptions{
		Search:          ss.QueryText,
		JobType:         ss.JobType,
		ExperienceLevel: ss.ExperienceLevel,
		Category:        ss.Category,
		LocationID:      ss.LocationID,
		IsRemote:        ss.IsRemote,
		MinSalary:       ss.SalaryMin,
		MaxSalary:       ss.SalaryMax,
	}
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

func apply(ss *model.SavedSearch, in Input) error {
	if err := setTrimmed(&ss.Name, in.Name, "name", maxNameLen); err != nil {
		return err
	}
	if ss.Name == "" {
		return apperr.Validation("name is required")
	}
	if err := setTrimmed(&ss.QueryText, in.QueryText, "query_text", maxQueryLen); err != nil {
		return err
	}
	if err := setTrimmed(&ss.Category, in.Category, "category", 100); err != nil {
		return err
	}
	if err := setTrimmed(&ss.JobType, in.JobType, "job_type", 20); err != nil {
		return err
	}
	if ss.JobType != "" && !slices.Contains(model.JobTypes, ss.JobType) {
		return apperr.Validation("unknown job type %q", ss.JobType)
	}
	if err := setTrimmed(&ss.ExperienceLevel, in.ExperienceLevel, "experience_level", 20); err != nil {
		return err
	}
	if ss.ExperienceLevel != "" && !slices.Contains(model.ExperienceLevels, ss.ExperienceLevel) {
		return apperr.Validation("unknown experience level %q", ss.ExperienceLevel)
	}
	if in.LocationID != nil {
		ss.LocationID = *in.LocationID
	}
	if in.SalaryMin != nil {
		ss.SalaryMin = in.SalaryMin
	}
	if in.SalaryMax != nil {
		ss.SalaryMax = in.SalaryMax
	}
	if ss.SalaryMin != nil && ss.SalaryMax != nil && *ss.SalaryMin > *ss.SalaryMax {
		return apperr.Validation("salary_min must not exceed salary_max")
	}
	if in.IsRemote != nil {
		ss.IsRemote = in.IsRemote
	}
	if in.AdditionalFilters != nil {
		ss.AdditionalFilters = datatypes.JSONMap(in.AdditionalFilters)
	}
	if in.EmailAlerts != nil {
		ss.EmailAlerts = *in.EmailAlerts
	}
	if in.AlertFrequency != nil {
		switch v := strings.TrimSpace(*in.AlertFrequency); v {
		case model.AlertImmediate, model.AlertDaily, model.AlertWeekly:
			ss.AlertFrequency = v
		default:
			return apperr.Validation("unknown alert frequency %q", v)
		}
	}
	return nil
}
