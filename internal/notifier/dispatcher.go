package notifier

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"jobsphere/internal/model"

	"gorm.io/datatypes"
)

// Store 定义分发器所需的持久化接口。
type Store interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	MarkNotificationEmailed(ctx context.Context, id uint) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetOrCreateDashboard(ctx context.Context, userID uint) (*model.Dashboard, error)
}

// eventNotifier 提供统一的事件投递接口。
type eventNotifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Dispatcher 先落库站内通知，再按用户偏好分发到邮件、消息队列与日志。
type Dispatcher struct {
	store  Store
	email  *EmailNotifier
	broker eventNotifier
	log    eventNotifier
	logger *log.Logger
}

// NewDispatcher 创建分发器，email、broker 为 nil 时对应渠道关闭。
func NewDispatcher(store Store, email *EmailNotifier, broker eventNotifier, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &Dispatcher{
		store:  store,
		email:  email,
		broker: broker,
		log:    NewLogNotifier(logger),
		logger: logger,
	}
}

// Emit 保存通知并分发，渠道失败只记录日志。
func (d *Dispatcher) Emit(ctx context.Context, ev Event) error {
	if ev.UserID == 0 {
		return fmt.Errorf("emit notification: user required")
	}
	if ev.Type == "" {
		ev.Type = model.NotifySystem
	}
	if ev.Priority == "" {
		ev.Priority = model.PriorityNormal
	}

	n := model.Notification{
		UserID:            ev.UserID,
		Type:              ev.Type,
		Title:             ev.Title,
		Message:           ev.Message,
		Priority:          ev.Priority,
		ActionURL:         ev.ActionURL,
		RelatedObjectType: ev.RelatedObjectType,
		RelatedObjectID:   ev.RelatedObjectID,
		Metadata:          datatypes.JSONMap(ev.Metadata),
	}
	if err := d.store.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	_ = d.log.Notify(ctx, ev)

	dash, err := d.store.GetOrCreateDashboard(ctx, ev.UserID)
	if err != nil {
		d.logger.Printf("load preferences for user %d: %v", ev.UserID, err)
		dash = &model.Dashboard{UserID: ev.UserID}
	}
	category := categoryPreference(ev.Type)
	if category != "" && !dash.PreferenceEnabled(category) {
		return nil
	}

	if d.email != nil && dash.PreferenceEnabled(model.PrefEmailNotifications) {
		d.sendEmail(ctx, n.ID, ev)
	}
	if d.broker != nil && dash.PreferenceEnabled(model.PrefPushNotifications) {
		if err := d.broker.Notify(ctx, ev); err != nil {
			d.logger.Printf("publish notification %d: %v", n.ID, err)
		}
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, id uint, ev Event) {
	user, err := d.store.GetUser(ctx, ev.UserID)
	if err != nil {
		d.logger.Printf("load recipient %d: %v", ev.UserID, err)
		return
	}
	if strings.TrimSpace(user.Email) == "" {
		return
	}
	if err := d.email.Notify(ctx, user.Email, ev); err != nil {
		d.logger.Printf("email notification %d: %v", id, err)
		return
	}
	if err := d.store.MarkNotificationEmailed(ctx, id); err != nil {
		d.logger.Printf("mark notification %d emailed: %v", id, err)
	}
}
