package notifier

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"jobsphere/internal/model"

	"gorm.io/datatypes"
)

func TestDispatcherPersistsAndFansOut(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	sender := &stubSender{}
	broker := &stubBroker{}
	d := NewDispatcher(store, NewEmailNotifier(EmailConfig{From: "noreply@example.com"}, sender), broker, quietLogger())

	ev := Event{UserID: 1, Type: model.NotifyApplicationStatus, Title: "Status changed", Message: "reviewed"}
	if err := d.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit error: %v", err)
	}

	if len(store.created) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(store.created))
	}
	n := store.created[0]
	if n.Priority != model.PriorityNormal || n.Type != model.NotifyApplicationStatus {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if sender.calls != 1 || sender.last.To[0] != "user@example.com" {
		t.Fatalf("expected email to user, got calls=%d msg=%+v", sender.calls, sender.last)
	}
	if !store.emailed[n.ID] {
		t.Fatalf("expected notification marked emailed")
	}
	if broker.calls != 1 {
		t.Fatalf("expected broker publish, got %d", broker.calls)
	}
}

func TestDispatcherHonoursPreferences(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.prefs = datatypes.JSONMap{model.PrefApplicationUpdates: false}
	sender := &stubSender{}
	broker := &stubBroker{}
	d := NewDispatcher(store, NewEmailNotifier(EmailConfig{}, sender), broker, quietLogger())

	if err := d.Emit(context.Background(), Event{UserID: 1, Type: model.NotifyJobApplication, Title: "x"}); err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected in-app notification kept, got %d", len(store.created))
	}
	if sender.calls != 0 || broker.calls != 0 {
		t.Fatalf("expected external channels skipped, email=%d broker=%d", sender.calls, broker.calls)
	}

	store.prefs = datatypes.JSONMap{model.PrefEmailNotifications: false}
	if err := d.Emit(context.Background(), Event{UserID: 1, Type: model.NotifyJobApplication, Title: "y"}); err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	if sender.calls != 0 || broker.calls != 1 {
		t.Fatalf("expected only broker delivery, email=%d broker=%d", sender.calls, broker.calls)
	}
}

func TestDispatcherChannelFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	d := NewDispatcher(store, NewEmailNotifier(EmailConfig{}, &stubSender{err: errors.New("smtp down")}), &stubBroker{err: errors.New("broker down")}, quietLogger())

	if err := d.Emit(context.Background(), Event{UserID: 1, Title: "x"}); err != nil {
		t.Fatalf("expected channel failures swallowed, got %v", err)
	}
	if len(store.emailed) != 0 {
		t.Fatalf("expected email flag untouched on failure")
	}
}

func TestDispatcherPersistFailure(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.createErr = errors.New("db down")
	d := NewDispatcher(store, nil, nil, quietLogger())

	if err := d.Emit(context.Background(), Event{UserID: 1}); err == nil {
		t.Fatalf("expected persist error")
	}
	if err := d.Emit(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for missing user")
	}
}

// --- stubs ---

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubStore struct {
	created   []model.Notification
	emailed   map[uint]bool
	prefs     datatypes.JSONMap
	createErr error
}

func newStubStore() *stubStore {
	return &stubStore{emailed: map[uint]bool{}}
}

func (s *stubStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	n.ID = uint(len(s.created) + 1)
	s.created = append(s.created, *n)
	return nil
}

func (s *stubStore) MarkNotificationEmailed(ctx context.Context, id uint) error {
	s.emailed[id] = true
	return nil
}

func (s *stubStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	return &model.User{ID: id, Email: "user@example.com", IsActive: true}, nil
}

func (s *stubStore) GetOrCreateDashboard(ctx context.Context, userID uint) (*model.Dashboard, error) {
	return &model.Dashboard{UserID: userID, NotificationPreferences: s.prefs}, nil
}

type stubBroker struct {
	calls int
	err   error
}

func (b *stubBroker) Notify(ctx context.Context, ev Event) error {
	b.calls++
	return b.err
}
