package bookmark

import (
	"context"
	"errors"
	"strings"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

const maxNotesLen = 2000

// Store 定义收藏持久化接口。
type Store interface {
	GetJob(ctx context.Context, id uint) (*model.Job, error)
	CreateSavedJob(ctx context.Context, sj *model.SavedJob) error
	FindSavedJob(ctx context.Context, userID, jobID uint) (*model.SavedJob, error)
	GetSavedJob(ctx context.Context, id uint) (*model.SavedJob, error)
	UpdateSavedJobNotes(ctx context.Context, id uint, notes string) error
	DeleteSavedJob(ctx context.Context, id uint) error
	ListSavedJobs(ctx context.Context, userID uint, page storage.Page) ([]model.SavedJob, int64, error)
}

// Request 表示收藏请求。
type Request struct {
	JobID uint   `json:"job_id"`
	Notes string `json:"notes"`
}

// ListResult 收藏列表。
type ListResult struct {
	SavedJobs []model.SavedJob `json:"results"`
	Total     int64            `json:"count"`
}

// Service 负责校验并维护用户收藏的职位。
type Service struct {
	store Store
}

// NewService 创建收藏服务。
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Save 收藏职位，已收藏时返回原记录且 created 为 false。
func (s *Service) Save(ctx context.Context, userID uint, req Request) (sj *model.SavedJob, created bool, err error) {
	notes, err := cleanNotes(req.Notes)
	if err != nil {
		return nil, false, err
	}
	job, err := s.store.GetJob(ctx, req.JobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, apperr.NotFound("job %d not found", req.JobID)
	}
	if err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindSavedJob(ctx, userID, job.ID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.Job = job
		return existing, false, nil
	}

	saved := model.SavedJob{UserID: userID, JobID: job.ID, Notes: notes}
	if err := s.store.CreateSavedJob(ctx, &saved); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			return nil, false, err
		}
		// 并发收藏时以已存在的记录为准。
		existing, ferr := s.store.FindSavedJob(ctx, userID, job.ID)
		if ferr != nil || existing == nil {
			return nil, false, err
		}
		existing.Job = job
		return existing, false, nil
	}
	saved.Job = job
	return &saved, true, nil
}

// UpdateNotes 修改收藏备注。
func (s *Service) UpdateNotes(ctx context.Context, userID, id uint, notes string) (*model.SavedJob, error) {
	cleaned, err := cleanNotes(notes)
	if err != nil {
		return nil, err
	}
	sj, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSavedJobNotes(ctx, id, cleaned); err != nil {
		return nil, err
	}
	sj.Notes = cleaned
	return sj, nil
}

// Delete 取消收藏。
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteSavedJob(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("saved job %d not found", id)
		}
		return err
	}
	return nil
}

// List 返回用户收藏，按收藏时间倒序。
func (s *Service) List(ctx context.Context, userID uint, page, pageSize int) (ListResult, error) {
	items, total, err := s.store.ListSavedJobs(ctx, userID, storage.PageOf(page, pageSize))
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []model.SavedJob{}
	}
	return ListResult{SavedJobs: items, Total: total}, nil
}

func (s *Service) owned(ctx context.Context, userID, id uint) (*model.SavedJob, error) {
	sj, err := s.store.GetSavedJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("saved job %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if sj.UserID != userID {
		return nil, apperr.Forbidden("saved job %d belongs to another user", id)
	}
	return sj, nil
}

func cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(notes)
	if len([]rune(notes)) > maxNotesLen {
		return "", apperr.Validation("notes must be at most %d characters", maxNotesLen)
	}
	return notes, nil
}
