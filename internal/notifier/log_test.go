package notifier

import (
	"context"
	"log"
	"strings"
	"testing"

	"jobsphere/internal/model"
)

func TestLogNotifierWritesEvent(t *testing.T) {
	var buf strings.Builder
	logger := log.New(&buf, "", 0)
	n := NewLogNotifier(logger)

	ev := Event{UserID: 7, Type: model.NotifyApplicationStatus, Priority: model.PriorityHigh, Title: "Application reviewed"}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	logged := buf.String()
	if !strings.Contains(logged, "Application reviewed") || !strings.Contains(logged, "user=7") {
		t.Fatalf("log output missing event info: %s", logged)
	}
}
