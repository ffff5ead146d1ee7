package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/storage"
)

// Runner performs one analysis run
type Runner interface {
	RunAnalysis(ctx context.Context) (*models.RunSummary, error)
}

// Service handles scheduling of analysis runs
type Service struct {
	config   *config.Config
	runner   Runner
	settings storage.SettingsStore
	cron     *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entryID cron.EntryID
	spec    string
}

// NewService creates a new scheduler service running in the configured time zone
func NewService(cfg *config.Config, runner Runner, settings storage.SettingsStore) *Service {
	return &Service{
		config:   cfg,
		runner:   runner,
		settings: settings,
		cron: cron.New(
			cron.WithLocation(cfg.Location()),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		ctx: context.Background(),
	}
}

// Start schedules the run from the cron_time setting, seeding it from the
// configuration when absent. Scheduled runs use ctx.
func (s *Service) Start(ctx context.Context) error {
	spec, err := s.resolveSpec(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Reschedule(spec); err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"schedule": spec,
		"timezone": s.config.TimeZone,
		"next_run": s.NextRun(),
	}).Info("Scheduler started")

	if s.config.RunImmediately {
		go s.run()
	}
	return nil
}

func (s *Service) resolveSpec(ctx context.Context) (string, error) {
	spec, err := s.settings.GetSetting(ctx, storage.SettingCronTime)
	if err == nil && spec != "" {
		return spec, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to read schedule setting: %w", err)
	}

	spec = s.config.CronSchedule
	if err := s.settings.SetSetting(ctx, storage.SettingCronTime, spec); err != nil {
		return "", fmt.Errorf("failed to seed schedule setting: %w", err)
	}
	logrus.WithField("schedule", spec).Info("Seeded schedule setting from configuration")
	return spec, nil
}

// Reschedule validates a standard 5-field cron spec and replaces the current entry
func (s *Service) Reschedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("failed to schedule %q: %w", spec, err)
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		logrus.WithFields(logrus.Fields{
			"previous": s.spec,
			"schedule": spec,
		}).Info("Rescheduled analysis run")
	}
	s.entryID = id
	s.spec = spec
	return nil
}

// Schedule returns the active cron spec
func (s *Service) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// NextRun returns the next activation time, zero before Start
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

func (s *Service) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	logrus.Info("Starting scheduled analysis run")
	summary, err := s.runner.RunAnalysis(ctx)
	if err != nil {
		logrus.WithError(err).Error("Scheduled analysis run failed")
		return
	}
	logrus.Infof("Scheduled analysis run finished: %d/%d succeeded", summary.Succeeded(), len(summary.Results))
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
