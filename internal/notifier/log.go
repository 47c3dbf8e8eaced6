package notifier

import (
	"context"
	"log"
	"os"
)

// LogNotifier 仅打印通知事件，适合开发阶段使用。
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier 创建日志通知器，未提供 logger 时默认输出到标准输出。
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

// Notify 打印事件摘要。
func (n LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.logger.Printf("user=%d type=%s priority=%s title=%q", ev.UserID, ev.Type, ev.Priority, ev.Title)
	return nil
}
