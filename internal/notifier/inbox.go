package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

// InboxStore 定义站内通知读取与维护接口。
type InboxStore interface {
	ListNotifications(ctx context.Context, q storage.NotificationQuery) ([]model.Notification, int64, error)
	NotificationStatsFor(ctx context.Context, userID uint) (storage.NotificationStats, error)
	GetNotification(ctx context.Context, id uint) (*model.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID uint, ids []uint, now time.Time) (int64, error)
	UpdateNotificationFlags(ctx context.Context, n *model.Notification) error
	DeleteNotification(ctx context.Context, id uint) error
}

// ListOptions 通知列表参数。
type ListOptions struct {
	UnreadOnly bool
	ActiveOnly bool
	Type       string
	Priority   string
	Page       int
	PageSize   int
}

// ListResult 通知列表及统计。
type ListResult struct {
	Notifications []model.Notification      `json:"notifications"`
	Total         int64                     `json:"total"`
	Stats         storage.NotificationStats `json:"stats"`
}

// Inbox 提供用户站内通知的查询与状态维护。
type Inbox struct {
	store InboxStore
	now   func() time.Time
}

// NewInbox 创建 Inbox。
func NewInbox(store InboxStore) *Inbox {
	return &Inbox{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// List 返回用户通知列表。
func (s *Inbox) List(ctx context.Context, userID uint, opts ListOptions) (ListResult, error) {
	q := storage.NotificationQuery{
		Page:       storage.PageOf(opts.Page, opts.PageSize),
		UserID:     userID,
		UnreadOnly: opts.UnreadOnly,
	}
	if opts.ActiveOnly {
		q.ActiveAt = s.now()
	}
	if t := strings.TrimSpace(opts.Type); t != "" {
		if !validType(model.NotificationType(t)) {
			return ListResult{}, apperr.Validation("unknown notification type %q", t)
		}
		q.Type = model.NotificationType(t)
	}
	if p := strings.TrimSpace(opts.Priority); p != "" {
		if !validPriority(p) {
			return ListResult{}, apperr.Validation("unknown priority %q", p)
		}
		q.Priority = p
	}

	items, total, err := s.store.ListNotifications(ctx, q)
	if err != nil {
		return ListResult{}, err
	}
	stats, err := s.store.NotificationStatsFor(ctx, userID)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return ListResult{Notifications: items, Total: total, Stats: stats}, nil
}

// Stats 返回用户通知统计。
func (s *Inbox) Stats(ctx context.Context, userID uint) (storage.NotificationStats, error) {
	return s.store.NotificationStatsFor(ctx, userID)
}

// Get 返回单条通知，markRead 为真时顺带标记已读。
func (s *Inbox) Get(ctx context.Context, userID, id uint, markRead bool) (*model.Notification, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if markRead && !n.IsRead {
		now := s.now()
		n.IsRead = true
		n.ReadAt = &now
		if err := s.store.UpdateNotificationFlags(ctx, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// MarkRead 将指定通知标为已读，返回实际更新数量。
func (s *Inbox) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("notification_ids required")
	}
	return s.store.MarkNotificationsRead(ctx, userID, ids, s.now())
}

// MarkAllRead 将全部未读通知标为已读。
func (s *Inbox) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.store.MarkNotificationsRead(ctx, userID, nil, s.now())
}

// Dismiss 忽略通知。
func (s *Inbox) Dismiss(ctx context.Context, userID, id uint) (*model.Notification, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.IsDismissed {
		return n, nil
	}
	n.IsDismissed = true
	if err := s.store.UpdateNotificationFlags(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete 删除通知。
func (s *Inbox) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, id)
}

// 他人的通知按不存在处理。
func (s *Inbox) owned(ctx context.Context, userID, id uint) (*model.Notification, error) {
	n, err := s.store.GetNotification(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("notification %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.NotFound("notification %d not found", id)
	}
	return n, nil
}

func validType(t model.NotificationType) bool {
	for _, v := range model.NotificationTypes {
		if v == t {
			return true
		}
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
		return true
	}
	return false
}
