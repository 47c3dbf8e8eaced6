package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jobsphere/internal/model"
	"jobsphere/internal/scheduler"
	"jobsphere/internal/storage"
)

func TestRunOnceManual(t *testing.T) {
	t.Parallel()

	stub := &stubScheduler{report: scheduler.Report{Expired: 3}}
	builds, cleanups := 0, 0

	rep, err := runOnceManual(context.Background(), AppConfig{}, func(AppConfig) (appDeps, func(), error) {
		builds++
		return appDeps{sched: stub}, func() { cleanups++ }, nil
	})
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if rep.Expired != 3 {
		t.Fatalf("expected expired=3, got %d", rep.Expired)
	}
	if builds != 1 || cleanups != 1 {
		t.Fatalf("expected one build and one cleanup, got %d/%d", builds, cleanups)
	}
	if stub.runOnceCalls != 1 {
		t.Fatalf("expected RunOnce called once, got %d", stub.runOnceCalls)
	}
}

func TestRunOnceManualBuilderError(t *testing.T) {
	t.Parallel()

	_, err := runOnceManual(context.Background(), AppConfig{}, func(AppConfig) (appDeps, func(), error) {
		return appDeps{}, func() {}, errors.New("build fail")
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestRunOnceManualRunError(t *testing.T) {
	t.Parallel()

	boom := errors.New("expire jobs: database is locked")
	stub := &stubScheduler{err: boom}
	cleanups := 0

	_, err := runOnceManual(context.Background(), AppConfig{}, func(AppConfig) (appDeps, func(), error) {
		return appDeps{sched: stub}, func() { cleanups++ }, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected RunOnce error to propagate, got %v", err)
	}
	if cleanups != 1 {
		t.Fatalf("expected cleanup after failed run, got %d", cleanups)
	}
}

func TestRunOnceManualExpiresPastDeadlineJobs(t *testing.T) {
	t.Parallel()

	cfg := AppConfig{}
	cfg.Database.Path = filepath.Join(t.TempDir(), "once.db")
	cfg.Scheduler.Interval = "1h"
	applyDefaults(&cfg)

	store, err := storage.Open(cfg.Database)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()
	poster := model.User{Username: "poster", Email: "poster@example.com", IsActive: true}
	if err := store.CreateUser(ctx, &poster); err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	for i, slug := range []string{"stale-1", "stale-2"} {
		job := model.Job{
			Title:               "Backend Engineer",
			Company:             "Acme",
			Description:         "Build services",
			JobType:             "full_time",
			ExperienceLevel:     "mid",
			Category:            "Technology",
			PostedByID:          poster.ID,
			Status:              model.JobStatusActive,
			ApplicationDeadline: &past,
			Slug:                slug,
		}
		if i == 1 {
			job.Status = model.JobStatusDraft
		}
		if err := store.CreateJob(ctx, &job); err != nil {
			t.Fatalf("CreateJob error: %v", err)
		}
	}
	_ = store.Close()

	rep, err := runOnceManual(ctx, cfg, buildApp)
	if err != nil {
		t.Fatalf("runOnceManual error: %v", err)
	}
	if rep.Expired != 1 {
		t.Fatalf("expected only the active job to expire, got %+v", rep)
	}
}

// --- stubs ---

type stubScheduler struct {
	report       scheduler.Report
	err          error
	runOnceCalls int
}

func (s *stubScheduler) RunOnce(context.Context) (scheduler.Report, error) {
	s.runOnceCalls++
	return s.report, s.err
}

func (s *stubScheduler) Start(context.Context) error {
	return nil
}
