package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"jobsphere/internal/scheduler"
)

// 确保收到取消信号时会触发服务器优雅关闭。
func TestRunServer_ShutdownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := newStubCancelScheduler()
	srv := newStubServer()

	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, srv, sched, 500*time.Millisecond)
	}()

	srv.waitStarted(t)

	cancel()

	srv.waitShutdown(t)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServer returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runServer did not return after cancel")
	}

	if sched.canceled.Load() == 0 {
		t.Fatalf("scheduler did not observe context cancellation")
	}
}

// 监听失败时应停止调度器并返回错误。
func TestRunServer_ListenError(t *testing.T) {
	t.Parallel()

	sched := newStubCancelScheduler()
	srv := &failingServer{}

	err := runServer(context.Background(), srv, sched, 100*time.Millisecond)
	if err == nil {
		t.Fatalf("expected listen error")
	}
	if sched.canceled.Load() == 0 {
		t.Fatalf("scheduler should stop when the server fails")
	}
}

func TestApplyEnvAndDefaults(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"DATABASE_DRIVER": "postgres",
		"DATABASE_DSN":    "host=db user=app",
		"AMQP_URL":        "amqp://guest:guest@mq:5672/",
	}
	var cfg AppConfig
	applyEnv(&cfg, func(k string) string { return env[k] })
	applyDefaults(&cfg)

	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "host=db user=app" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Database.Path != "" {
		t.Fatalf("postgres config should not get a sqlite path")
	}
	if cfg.Server.Addr != ":8080" || cfg.Scheduler.Interval != "1h" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.AMQP.URL == "" {
		t.Fatalf("expected amqp url override")
	}
}

func TestShutdownTimeout(t *testing.T) {
	t.Parallel()

	if got := shutdownTimeout(ServerConfig{ShutdownTimeout: "2s"}); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
	if got := shutdownTimeout(ServerConfig{ShutdownTimeout: "bogus"}); got != 5*time.Second {
		t.Fatalf("expected fallback 5s, got %v", got)
	}
}

func TestBuildAppWithSQLite(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Scheduler.Interval = "1h"
	applyDefaults(&cfg)

	deps, cleanup, err := buildApp(cfg)
	if err != nil {
		t.Fatalf("buildApp error: %v", err)
	}
	defer cleanup()

	if deps.handler == nil || deps.sched == nil {
		t.Fatalf("expected wired handler and scheduler")
	}
	rep, err := deps.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if rep.Expired != 0 || rep.Dashboards != 0 {
		t.Fatalf("empty database should produce an empty report, got %+v", rep)
	}
	if _, err := os.Stat(cfg.Database.Path); err != nil {
		t.Fatalf("expected sqlite file: %v", err)
	}
}

// --- stubs ---

type stubServer struct {
	started        chan struct{}
	shutdownCalled chan struct{}
	closed         atomic.Bool
}

func newStubServer() *stubServer {
	return &stubServer{
		started:        make(chan struct{}),
		shutdownCalled: make(chan struct{}),
	}
}

func (s *stubServer) ListenAndServe() error {
	close(s.started)
	<-s.shutdownCalled
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.shutdownCalled)
	return nil
}

func (s *stubServer) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
}

func (s *stubServer) waitShutdown(t *testing.T) {
	t.Helper()
	select {
	case <-s.shutdownCalled:
	case <-time.After(time.Second):
		t.Fatal("server shutdown was not called")
	}
}

type failingServer struct{}

func (failingServer) ListenAndServe() error          { return errors.New("address in use") }
func (failingServer) Shutdown(context.Context) error { return nil }

type stubCancelScheduler struct {
	canceled atomic.Int32
}

func newStubCancelScheduler() *stubCancelScheduler {
	return &stubCancelScheduler{}
}

func (s *stubCancelScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	s.canceled.Add(1)
	return ctx.Err()
}

func (s *stubCancelScheduler) RunOnce(context.Context) (scheduler.Report, error) {
	return scheduler.Report{}, nil
}
