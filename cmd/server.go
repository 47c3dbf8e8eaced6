package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"jobsphere/internal/api"
	"jobsphere/internal/bookmark"
	"jobsphere/internal/catalog"
	"jobsphere/internal/lifecycle"
	"jobsphere/internal/notifier"
	"jobsphere/internal/profile"
	"jobsphere/internal/scheduler"
	"jobsphere/internal/search"
	"jobsphere/internal/stats"
	"jobsphere/internal/storage"
)

// AppConfig 应用配置。
type AppConfig struct {
	Server    ServerConfig         `yaml:"server"`
	Database  storage.Config       `yaml:"database"`
	Scheduler scheduler.Config     `yaml:"scheduler"`
	Email     notifier.EmailConfig `yaml:"email"`
	AMQP      notifier.AMQPConfig  `yaml:"amqp"`
	CORS      api.CORSConfig       `yaml:"cors"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type maintenanceScheduler interface {
	Start(ctx context.Context) error
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

// appDeps 组装后的运行时依赖。
type appDeps struct {
	handler http.Handler
	sched   maintenanceScheduler
}

func main() {
	once := flag.Bool("once", false, "run maintenance once and exit")
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("load config error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		rep, err := runOnceManual(ctx, cfg, buildApp)
		if err != nil {
			log.Printf("maintenance error: %v", err)
			os.Exit(1)
		}
		log.Printf("maintenance done: expired=%d counters=%d dashboards=%d alerts=%d", rep.Expired, rep.CountersUpdated, rep.Dashboards, rep.Alerts)
		return
	}

	deps, cleanup, err := buildApp(cfg)
	if err != nil {
		log.Printf("init error: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           deps.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("listening on %s", cfg.Server.Addr)
	if err := runServer(ctx, srv, deps.sched, shutdownTimeout(cfg.Server)); err != nil {
		log.Printf("server error: %v", err)
	}
}

// buildApp 打开存储并组装服务、通知渠道、调度器与路由。
func buildApp(cfg AppConfig) (appDeps, func(), error) {
	store, err := storage.Open(cfg.Database)
	if err != nil {
		return appDeps{}, func() {}, fmt.Errorf("init store: %w", err)
	}
	closers := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	notifyLog := log.New(os.Stdout, "[notify] ", log.LstdFlags)
	var email *notifier.EmailNotifier
	if cfg.Email.Enabled() {
		email = notifier.NewEmailNotifier(cfg.Email, nil)
	} else {
		notifyLog.Printf("email channel disabled: missing host/port/from")
	}

	var dispatcher *notifier.Dispatcher
	if cfg.AMQP.URL != "" {
		broker, err := notifier.DialAMQP(cfg.AMQP)
		if err != nil {
			notifyLog.Printf("amqp channel disabled: %v", err)
			dispatcher = notifier.NewDispatcher(store, email, nil, notifyLog)
		} else {
			closers = append(closers, func() { _ = broker.Close() })
			dispatcher = notifier.NewDispatcher(store, email, broker, notifyLog)
		}
	} else {
		dispatcher = notifier.NewDispatcher(store, email, nil, notifyLog)
	}

	dashboards := stats.NewService(store)
	jobs := catalog.NewService(store)
	searches := search.NewService(store, jobs, dispatcher, log.New(os.Stdout, "[search] ", log.LstdFlags))
	sched := scheduler.NewScheduler(store, dispatcher, dashboards, log.New(os.Stdout, "[scheduler] ", log.LstdFlags), cfg.Scheduler).
		WithAlerts(searches)

	handler := api.NewHandler(api.Deps{
		Users:         store,
		Jobs:          jobs,
		Locations:     catalog.NewLocations(store),
		Applications:  lifecycle.NewService(store, dispatcher, log.New(os.Stdout, "[lifecycle] ", log.LstdFlags)),
		SavedJobs:     bookmark.NewService(store),
		Notifications: notifier.NewInbox(store),
		Dashboards:    dashboards,
		Profiles:      profile.NewService(store),
		Searches:      searches,
		Maintenance:   sched,
		Health:        store,
		CORS:          cfg.CORS,
		Logger:        log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	return appDeps{handler: handler, sched: sched}, cleanup, nil
}

// runServer 并行运行 HTTP 服务与调度器，ctx 取消后在超时内优雅关闭。
func runServer(ctx context.Context, srv httpServer, sched maintenanceScheduler, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runOnceManual 组装依赖后执行一次维护并释放资源。
func runOnceManual(ctx context.Context, cfg AppConfig, build func(AppConfig) (appDeps, func(), error)) (scheduler.Report, error) {
	deps, cleanup, err := build(cfg)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return scheduler.Report{}, err
	}
	return deps.sched.RunOnce(ctx)
}

// loadConfig 先加载 .env，再读取 YAML，最后应用环境变量覆盖与默认值。文件缺失时使用默认配置。
func loadConfig() (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	var cfg AppConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config %s not found, using defaults", path)
	case err != nil:
		return AppConfig{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *AppConfig, getenv func(string) string) {
	if v := getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("AMQP_URL"); v != "" {
		cfg.AMQP.URL = v
	}
	if v := getenv("SMTP_PASSWORD"); v != "" {
		cfg.Email.Password = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" && cfg.Database.DSN == "" {
		cfg.Database.Path = "jobsphere.db"
	}
	if cfg.Scheduler.Interval == "" {
		cfg.Scheduler.Interval = "1h"
	}
}

func shutdownTimeout(cfg ServerConfig) time.Duration {
	if d, err := time.ParseDuration(cfg.ShutdownTimeout); err == nil && d > 0 {
		return d
	}
	return 5 * time.Second
}
