package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/analysis"
	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/insights"
	"github.com/content-factory/topic-monitor/internal/lock"
	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/notifications"
	"github.com/content-factory/topic-monitor/internal/sources"
	"github.com/content-factory/topic-monitor/internal/storage"
)

// RunLockKey guards RunAnalysis against overlapping runs
const RunLockKey = "topic-monitor:run"

var (
	// ErrWebhookNotConfigured fails a run before any keyword is attempted
	ErrWebhookNotConfigured = errors.New("feishu webhook is not configured")
	// ErrRunInProgress is returned when another run holds the run lock
	ErrRunInProgress = errors.New("an analysis run is already in progress")
	// ErrRunInterrupted is returned when ctx is cancelled between keywords
	ErrRunInterrupted = errors.New("analysis run interrupted")
)

// Service drives scheduled runs across all enabled keywords
type Service struct {
	config     *config.Config
	store      storage.Store
	fetcher    sources.Fetcher
	requester  insights.Requester
	dispatcher notifications.Dispatcher
	locker     lock.Locker
	notifier   notifications.RunNotifier
	archive    *storage.ReportArchive
	now        func() time.Time
	metrics    *Metrics
	mu         sync.RWMutex
}

// Metrics holds the outcome of the most recent run
type Metrics struct {
	Runs             int       `json:"runs"`
	LastRun          time.Time `json:"last_run"`
	LastRunDuration  string    `json:"last_run_duration"`
	Keywords         int       `json:"keywords"`
	Succeeded        int       `json:"succeeded"`
	Failed           int       `json:"failed"`
	Delivered        int       `json:"delivered"`
	InsightFailures  int       `json:"insight_failures"`
	LastRunError     string    `json:"last_run_error,omitempty"`
	LastRunSucceeded bool      `json:"last_run_succeeded"`
}

// Option configures the optional collaborators of a Service
type Option func(*Service)

// WithRunNotifier mails a digest after every run
func WithRunNotifier(n notifications.RunNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithArchive uploads each persisted report to blob storage
func WithArchive(a *storage.ReportArchive) Option {
	return func(s *Service) { s.archive = a }
}

// NewService creates a new monitoring service. requester may be nil, in which
// case reports are persisted without insights.
func NewService(cfg *config.Config, store storage.Store, fetcher sources.Fetcher, requester insights.Requester,
	dispatcher notifications.Dispatcher, locker lock.Locker, opts ...Option) *Service {
	s := &Service{
		config:     cfg,
		store:      store,
		fetcher:    fetcher,
		requester:  requester,
		dispatcher: dispatcher,
		locker:     locker,
		now:        time.Now,
		metrics:    &Metrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// keywordOutcome is what one keyword's pipeline hands back to the run loop
type keywordOutcome struct {
	result         models.KeywordResult
	insightFailure bool
}

// RunAnalysis performs one complete run. Keyword-level failures are recorded
// on their reports; only the webhook precondition, the run lock, storage
// errors and cancellation between keywords are returned. An interrupted run
// returns the partial summary with ErrRunInterrupted.
func (s *Service) RunAnalysis(ctx context.Context) (*models.RunSummary, error) {
	runID := uuid.NewString()
	log := logrus.WithField("run_id", runID)
	start := s.now()

	summary := &models.RunSummary{
		RunID:     runID,
		Results:   []models.KeywordResult{},
		StartedAt: start,
	}

	lease, err := s.locker.Acquire(ctx, RunLockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			log.Warn("Skipping run: another run holds the lock")
			return nil, fmt.Errorf("%w: %w", ErrRunInProgress, err)
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("Failed to release run lock")
		}
	}()

	webhookURL, err := s.webhookURL(ctx)
	if err != nil {
		return nil, err
	}
	if webhookURL == "" {
		log.Error("Feishu webhook is not configured, skipping run")
		summary.FinishedAt = s.now()
		s.recordRun(summary, 0, ErrWebhookNotConfigured)
		return summary, ErrWebhookNotConfigured
	}

	keywords, err := s.store.ListEnabledKeywords(ctx)
	if err != nil {
		s.recordRun(summary, 0, err)
		return nil, fmt.Errorf("failed to list enabled keywords: %w", err)
	}

	log.Infof("Starting analysis run for %d keywords", len(keywords))

	insightFailures := 0
	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warnf("Run interrupted, skipping %d remaining keywords", len(keywords)-i)
			summary.FinishedAt = s.now()
			s.recordRun(summary, insightFailures, err)
			return summary, fmt.Errorf("%w: %w", ErrRunInterrupted, err)
		}
		outcome, err := s.processKeyword(ctx, log, webhookURL, kw)
		if err != nil {
			summary.FinishedAt = s.now()
			s.recordRun(summary, insightFailures, err)
			return nil, err
		}
		if outcome.insightFailure {
			insightFailures++
		}
		summary.Results = append(summary.Results, outcome.result)
	}

	summary.Success = true
	summary.FinishedAt = s.now()
	s.recordRun(summary, insightFailures, nil)

	log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded(),
		"total":     len(summary.Results),
		"duration":  summary.FinishedAt.Sub(start).String(),
	}).Info("Analysis run completed")

	if s.notifier != nil {
		if err := s.notifier.SendRunSummary(summary); err != nil {
			log.WithError(err).Error("Failed to send run summary")
		}
	}

	return summary, nil
}

// webhookURL prefers the settings table and falls back to the environment
func (s *Service) webhookURL(ctx context.Context) (string, error) {
	value, err := s.store.GetSetting(ctx, storage.SettingFeishuWebhook)
	switch {
	case err == nil && value != "":
		return value, nil
	case err == nil, errors.Is(err, storage.ErrNotFound):
		return s.config.FeishuWebhookURL, nil
	default:
		return "", fmt.Errorf("failed to read webhook setting: %w", err)
	}
}

// processKeyword runs one keyword end to end. The returned error is always a
// storage failure. Once the keyword is started its writes are not cancelled, so
// every attempt leaves exactly one report.
func (s *Service) processKeyword(ctx context.Context, runLog *logrus.Entry, webhookURL string, kw models.MonitoredKeyword) (keywordOutcome, error) {
	log := runLog.WithFields(logrus.Fields{
		"keyword":  kw.Keyword,
		"platform": kw.Platform,
	})
	keywordID := kw.ID
	result := models.KeywordResult{
		KeywordID: kw.ID,
		Keyword:   kw.Keyword,
		Platform:  kw.Platform,
	}
	var outcome keywordOutcome

	writeCtx := context.WithoutCancel(ctx)

	analysisResult, insightErr, err := s.analyze(ctx, kw)
	draft := models.ReportDraft{
		KeywordID: &keywordID,
		Keyword:   kw.Keyword,
		Platform:  kw.Platform,
		CreatedAt: s.now(),
	}
	if err != nil {
		log.WithError(err).Error("Keyword analysis failed")
		draft.Error = err.Error()
		result.Error = err.Error()
	} else {
		draft.AnalysisResult = analysisResult
		result.Success = true
		if insightErr != nil {
			log.WithError(insightErr).Warn("Insight generation failed, persisting report without insights")
			outcome.insightFailure = true
		}
	}

	if _, err := s.store.GetKeyword(writeCtx, kw.ID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return outcome, fmt.Errorf("failed to load keyword %d: %w", kw.ID, err)
		}
		log.Warn("Keyword was deleted during the run, storing report without keyword reference")
		draft.KeywordID = nil
	}

	reportID, err := s.store.InsertReport(writeCtx, draft)
	if err != nil {
		return outcome, fmt.Errorf("failed to insert report for keyword %d: %w", kw.ID, err)
	}
	result.ReportID = &reportID
	log = log.WithField("report_id", reportID)

	if analysisResult != nil && draft.Error == "" {
		delivery := s.dispatcher.Push(writeCtx, webhookURL, &models.NotificationReport{
			Keyword:    kw.Keyword,
			Platform:   kw.Platform,
			ReportID:   reportID,
			ReportURL:  s.config.ReportURL(reportID),
			Stats:      analysisResult.Stats,
			TopByCount: analysisResult.TopByCount,
			TopByRatio: analysisResult.TopByRatio,
			Insights:   analysisResult.Insights,
			Date:       s.now().In(s.config.Location()),
		})

		pushedAt := s.now()
		if err := s.store.UpdateDelivery(writeCtx, reportID, models.Delivery{
			Pushed:   delivery.Success,
			PushedAt: &pushedAt,
			Response: delivery.Response,
			Error:    delivery.Error,
		}); err != nil {
			return outcome, fmt.Errorf("failed to record delivery for report %d: %w", reportID, err)
		}

		result.Delivered = delivery.Success
		result.DeliveryError = delivery.Error
		if delivery.Success {
			log.Info("Report pushed to Feishu")
		}
	}

	if err := s.store.TouchLastRun(writeCtx, kw.ID, s.now()); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return outcome, fmt.Errorf("failed to update last run for keyword %d: %w", kw.ID, err)
		}
		log.Warn("Keyword was deleted during the run")
	}

	s.archiveReport(writeCtx, log, reportID)

	outcome.result = result
	return outcome, nil
}

// analyze fetches, aggregates and requests insights for one keyword. A non-nil
// err is a fetch-stage failure; insightErr is informational only.
func (s *Service) analyze(ctx context.Context, kw models.MonitoredKeyword) (result *models.AnalysisResult, insightErr error, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, insightErr = nil, nil
			err = fmt.Errorf("panic while analyzing keyword: %v", r)
		}
	}()

	strategy, err := analysis.ForPlatform(kw.Platform)
	if err != nil {
		return nil, nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	items, err := s.fetcher.Search(fetchCtx, kw.Keyword, kw.Platform)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("fetch failed: %w", err)
	}

	agg := strategy.Aggregate(items)
	result = &models.AnalysisResult{
		Keyword:    kw.Keyword,
		Platform:   kw.Platform,
		Stats:      agg.Stats,
		TopByCount: agg.TopByCount,
		TopByRatio: agg.TopByRatio,
	}

	shortlist := strategy.Shortlist(items)
	if len(shortlist) == 0 || s.requester == nil {
		return result, nil, nil
	}

	insightCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()
	bundle, insightErr := s.requestInsights(insightCtx, kw, shortlist)
	if insightErr == nil {
		result.Insights = bundle
	}
	return result, insightErr, nil
}

// requestInsights isolates panics in the insight collaborator so they degrade
// like any other insight failure
func (s *Service) requestInsights(ctx context.Context, kw models.MonitoredKeyword, shortlist []models.ShortlistItem) (bundle *models.InsightBundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			bundle, err = nil, fmt.Errorf("panic while requesting insights: %v", r)
		}
	}()

	bundle, err = s.requester.Analyze(ctx, kw.Keyword, kw.Platform, shortlist)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		return nil, fmt.Errorf("%w: empty bundle", models.ErrInvalidInsightBundle)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (s *Service) archiveReport(ctx context.Context, log *logrus.Entry, reportID int64) {
	if s.archive == nil {
		return
	}
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		log.WithError(err).Warn("Failed to load report for archiving")
		return
	}
	path, err := s.archive.Archive(ctx, report)
	if err != nil {
		log.WithError(err).Warn("Failed to archive report")
		return
	}
	log.WithField("path", path).Debug("Archived report")
}

func (s *Service) recordRun(summary *models.RunSummary, insightFailures int, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = s.now()
	}

	delivered := 0
	for _, r := range summary.Results {
		if r.Delivered {
			delivered++
		}
	}

	s.metrics.Runs++
	s.metrics.LastRun = summary.StartedAt
	s.metrics.LastRunDuration = finished.Sub(summary.StartedAt).String()
	s.metrics.Keywords = len(summary.Results)
	s.metrics.Succeeded = summary.Succeeded()
	s.metrics.Failed = len(summary.Results) - summary.Succeeded()
	s.metrics.Delivered = delivered
	s.metrics.InsightFailures = insightFailures
	s.metrics.LastRunSucceeded = runErr == nil
	s.metrics.LastRunError = ""
	if runErr != nil {
		s.metrics.LastRunError = runErr.Error()
	}
}

// Metrics returns a copy of the current run metrics
func (s *Service) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.metrics
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	m := s.Metrics()
	data, _ := json.MarshalIndent(m, "", "  ")
	return string(data)
}
