package notifier

import (
	"context"
	"strings"
	"testing"
)

func TestEmailNotifierSendsEvent(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	n := NewEmailNotifier(EmailConfig{From: "from@example.com", BaseURL: "https://jobs.example.com/"}, sender)

	ev := Event{Title: "New application", Message: "Someone applied", ActionURL: "/applications/3"}
	if err := n.Notify(context.Background(), "to@example.com", ev); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("expected 1 send call, got %d", sender.calls)
	}
	if sender.last.Subject != "[JobSphere] New application" {
		t.Fatalf("unexpected subject %q", sender.last.Subject)
	}
	if !strings.Contains(sender.last.Body, "https://jobs.example.com/applications/3") {
		t.Fatalf("expected body to contain action link, got %s", sender.last.Body)
	}
}

func TestEmailNotifierSkipsWithoutRecipient(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	n := NewEmailNotifier(EmailConfig{From: "from@example.com"}, sender)

	if err := n.Notify(context.Background(), "  ", Event{Title: "x"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if sender.calls != 0 {
		t.Fatalf("expected no send calls, got %d", sender.calls)
	}
}

func TestBuildEmailDataHeaders(t *testing.T) {
	t.Parallel()

	data := buildEmailData(EmailMessage{From: "a@example.com", To: []string{"b@example.com", "c@example.com"}, Subject: "Hi", Body: "body"})
	if !strings.Contains(data, "To: b@example.com,c@example.com\r\n") {
		t.Fatalf("missing To header: %q", data)
	}
	if !strings.HasSuffix(data, "\r\n\r\nbody") {
		t.Fatalf("body not separated from headers: %q", data)
	}
}

// --- stubs ---

type stubSender struct {
	calls int
	last  EmailMessage
	err   error
}

func (s *stubSender) Send(ctx context.Context, msg EmailMessage) error {
	s.calls++
	s.last = msg
	if s.err != nil {
		return s.err
	}
	return ctx.Err()
}
