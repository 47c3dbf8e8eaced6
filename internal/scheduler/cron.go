package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"jobsphere/internal/model"
	"jobsphere/internal/notifier"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// Config 用于调度配置，Interval 可以是 Go duration 或 5 段 cron 表达式。
type Config struct {
	Interval string `yaml:"interval" json:"interval"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

// Store 抽象维护任务所需的存储接口，便于测试替换。
type Store interface {
	ExpireJobs(ctx context.Context, now time.Time) ([]model.Job, error)
	RefreshJobCounters(ctx context.Context) (int64, error)
}

// Notifier 用于通知职位发布人。
type Notifier interface {
	Emit(ctx context.Context, ev notifier.Event) error
}

// DashboardRefresher 重算所有用户仪表盘快照。
type DashboardRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Alerter 为保存的检索推送新职位提醒。
type Alerter interface {
	SendAlerts(ctx context.Context, now time.Time) (int, error)
}

// Report 单次维护的结果。
type Report struct {
	Expired         int   `json:"expired"`
	CountersUpdated int64 `json:"counters_updated"`
	Dashboards      int   `json:"dashboards"`
	Alerts          int   `json:"alerts"`
	Skipped         bool  `json:"skipped,omitempty"`
}

// Scheduler 负责周期性执行职位过期、计数重算与仪表盘刷新。
type Scheduler struct {
	store      Store
	notif      Notifier
	dashboards DashboardRefresher
	alerts     Alerter
	logger     *log.Logger
	interval   time.Duration
	cronSpec   string
	cron       cron.Schedule
	timeout    time.Duration
	running    atomic.Bool
	newTicker  func(time.Duration) ticker
	now        func() time.Time
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewScheduler 创建 Scheduler，解析配置的间隔与超时。notif、dashboards 可为 nil。
func NewScheduler(s Store, n Notifier, d DashboardRefresher, logger *log.Logger, cfg Config) *Scheduler {
	interval, spec, schedule := parseSchedule(cfg.Interval)
	timeout := 5 * time.Minute
	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[scheduler] ", log.LstdFlags)
	}

	return &Scheduler{
		store:      s,
		notif:      n,
		dashboards: d,
		logger:     logger,
		interval:   interval,
		cronSpec:   spec,
		cron:       schedule,
		timeout:    timeout,
		newTicker:  defaultTicker,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithAlerts 在每次维护末尾发送保存检索的新职位提醒。
func (s *Scheduler) WithAlerts(a Alerter) *Scheduler {
	s.alerts = a
	return s
}

// Start 启动调度循环，直到上下文取消。单次维护失败只记录日志。
func (s *Scheduler) Start(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("scheduler missing dependencies")
	}

	g, ctx := errgroup.WithContext(ctx)

	if s.cron != nil {
		s.logger.Printf("running on cron %q", s.cronSpec)
		g.Go(func() error {
			return s.startCron(ctx)
		})
	} else {
		s.logger.Printf("running every %s", s.interval)
		tick := s.newTicker(s.interval)
		ch := tick.C()

		g.Go(func() error {
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ch:
					s.runAndLog(ctx)
				drain:
					for {
						select {
						case <-ch:
							continue
						default:
							break drain
						}
					}
				}
			}
		})
	}

	return g.Wait()
}

// RunOnce 执行一次维护，供 -once 模式与测试使用。
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	return s.runOnce(ctx)
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	rep, err := s.runOnce(ctx)
	if err != nil {
		s.logger.Printf("maintenance failed: %v", err)
		return
	}
	if !rep.Skipped {
		s.logger.Printf("maintenance done: expired=%d counters=%d dashboards=%d alerts=%d", rep.Expired, rep.CountersUpdated, rep.Dashboards, rep.Alerts)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) (Report, error) {
	if s.running.Swap(true) {
		return Report{Skipped: true}, nil
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rep Report
	expired, err := s.store.ExpireJobs(ctx, s.now())
	if err != nil {
		return rep, fmt.Errorf("expire jobs: %w", err)
	}
	rep.Expired = len(expired)
	for _, job := range expired {
		s.notifyExpired(ctx, job)
	}

	rep.CountersUpdated, err = s.store.RefreshJobCounters(ctx)
	if err != nil {
		return rep, fmt.Errorf("refresh job counters: %w", err)
	}

	if s.dashboards != nil {
		rep.Dashboards, err = s.dashboards.RefreshAll(ctx)
		if err != nil {
			return rep, fmt.Errorf("refresh dashboards: %w", err)
		}
	}

	if s.alerts != nil {
		rep.Alerts, err = s.alerts.SendAlerts(ctx, s.now())
		if err != nil {
			return rep, fmt.Errorf("send search alerts: %w", err)
		}
	}
	return rep, nil
}

func (s *Scheduler) notifyExpired(ctx context.Context, job model.Job) {
	if s.notif == nil {
		return
	}
	err := s.notif.Emit(ctx, notifier.Event{
		UserID:            job.PostedByID,
		Type:              model.NotifyJobPosting,
		Title:             "Job posting expired",
		Message:           fmt.Sprintf("%s at %s passed its application deadline and no longer accepts applications.", job.Title, job.Company),
		ActionURL:         fmt.Sprintf("/jobs/%d", job.ID),
		RelatedObjectType: "job",
		RelatedObjectID:   job.ID,
	})
	if err != nil {
		s.logger.Printf("notify expiry of job %d: %v", job.ID, err)
	}
}

func defaultTicker(d time.Duration) ticker {
	t := time.NewTicker(d)
	return tickerWrapper{t}
}

type tickerWrapper struct {
	*time.Ticker
}

func (t tickerWrapper) C() <-chan time.Time { return t.Ticker.C }
func (t tickerWrapper) Stop()               { t.Ticker.Stop() }

func (s *Scheduler) startCron(ctx context.Context) error {
	for {
		next := s.cron.Next(s.now())
		if next.IsZero() {
			return fmt.Errorf("cron %q has no upcoming run", s.cronSpec)
		}
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.runAndLog(ctx)
		}
	}
}

// parseSchedule 优先按 duration 解析，其次按标准 cron 表达式，均失败时退回每小时一次。
func parseSchedule(value string) (time.Duration, string, cron.Schedule) {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" {
		if d, err := time.ParseDuration(trimmed); err == nil && d > 0 {
			return d, "", nil
		}
		if schedule, err := cron.ParseStandard(trimmed); err == nil {
			return 0, trimmed, schedule
		}
	}
	return time.Hour, "", nil
}
