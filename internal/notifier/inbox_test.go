package notifier

import (
	"context"
	"path/filepath"
	"testing"

	"jobsphere/internal/apperr"
	"jobsphere/internal/model"
	"jobsphere/internal/storage"
)

func newInboxFixture(t *testing.T) (*Inbox, *storage.Store, uint, uint) {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "inbox.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	owner := model.User{Username: "owner", Email: "owner@example.com", IsActive: true}
	other := model.User{Username: "other", Email: "other@example.com", IsActive: true}
	for _, u := range []*model.User{&owner, &other} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser error: %v", err)
		}
	}
	return NewInbox(store), store, owner.ID, other.ID
}

func TestInboxListAndMarkRead(t *testing.T) {
	t.Parallel()

	inbox, store, owner, _ := newInboxFixture(t)
	ctx := context.Background()
	d := NewDispatcher(store, nil, nil, quietLogger())
	for _, ev := range []Event{
		{UserID: owner, Type: model.NotifyJobApplication, Title: "a"},
		{UserID: owner, Type: model.NotifyApplicationStatus, Title: "b", Priority: model.PriorityUrgent},
	} {
		if err := d.Emit(ctx, ev); err != nil {
			t.Fatalf("Emit error: %v", err)
		}
	}

	res, err := inbox.List(ctx, owner, ListOptions{UnreadOnly: true, ActiveOnly: true})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if res.Total != 2 || res.Stats.Urgent != 1 {
		t.Fatalf("unexpected list result: total=%d stats=%+v", res.Total, res.Stats)
	}

	first := res.Notifications[0]
	got, err := inbox.Get(ctx, owner, first.ID, true)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !got.IsRead || got.ReadAt == nil {
		t.Fatalf("expected notification marked read: %+v", got)
	}

	n, err := inbox.MarkAllRead(ctx, owner)
	if err != nil {
		t.Fatalf("MarkAllRead error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 remaining unread marked, got %d", n)
	}

	if _, err := inbox.List(ctx, owner, ListOptions{Type: "bogus"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestInboxHidesOtherUsersNotifications(t *testing.T) {
	t.Parallel()

	inbox, store, owner, other := newInboxFixture(t)
	ctx := context.Background()
	d := NewDispatcher(store, nil, nil, quietLogger())
	if err := d.Emit(ctx, Event{UserID: owner, Title: "private"}); err != nil {
		t.Fatalf("Emit error: %v", err)
	}
	res, err := inbox.List(ctx, owner, ListOptions{})
	if err != nil || len(res.Notifications) != 1 {
		t.Fatalf("List error: %v", err)
	}
	id := res.Notifications[0].ID

	if _, err := inbox.Dismiss(ctx, other, id); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound for other user, got %v", err)
	}
	dismissed, err := inbox.Dismiss(ctx, owner, id)
	if err != nil || !dismissed.IsDismissed {
		t.Fatalf("Dismiss error: %v", err)
	}
	active, err := inbox.List(ctx, owner, ListOptions{ActiveOnly: true})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if active.Total != 0 {
		t.Fatalf("expected dismissed notification hidden, got %d", active.Total)
	}
	if err := inbox.Delete(ctx, owner, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := inbox.Get(ctx, owner, id, false); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}
