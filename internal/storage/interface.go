package storage

import (
	"context"
	"errors"
	"time"

	"github.com/content-factory/topic-monitor/internal/models"
)

var (
	// ErrNotFound is returned when a keyword, report or setting does not exist
	ErrNotFound = errors.New("not found")
	// ErrKeywordExists is returned when a (keyword, platform) pair is already registered
	ErrKeywordExists = errors.New("keyword already monitored on this platform")
)

// Setting keys
const (
	SettingFeishuWebhook = "feishu_webhook"
	SettingCronTime      = "cron_time"
)

const (
	DefaultReportLimit = 20
	MaxReportLimit     = 100
)

// KeywordRegistry stores the monitored (keyword, platform) pairs
type KeywordRegistry interface {
	ListKeywords(ctx context.Context) ([]models.MonitoredKeyword, error)
	ListEnabledKeywords(ctx context.Context) ([]models.MonitoredKeyword, error)
	GetKeyword(ctx context.Context, id int64) (*models.MonitoredKeyword, error)
	CreateKeyword(ctx context.Context, keyword string, platform models.Platform, enabled bool) (*models.MonitoredKeyword, error)
	UpdateKeyword(ctx context.Context, id int64, update models.KeywordUpdate) (*models.MonitoredKeyword, error)
	// DeleteKeyword removes the keyword; its reports stay with a NULL keyword_id
	DeleteKeyword(ctx context.Context, id int64) error
	TouchLastRun(ctx context.Context, id int64, at time.Time) error
}

// ReportFilter narrows ListReports
type ReportFilter struct {
	KeywordID *int64
	Platform  models.Platform
	Limit     int
	Offset    int
}

// Normalize applies the default and maximum page size
func (f ReportFilter) Normalize() ReportFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultReportLimit
	}
	if f.Limit > MaxReportLimit {
		f.Limit = MaxReportLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ReportStore persists one report per keyword run attempt
type ReportStore interface {
	InsertReport(ctx context.Context, draft models.ReportDraft) (int64, error)
	UpdateDelivery(ctx context.Context, id int64, delivery models.Delivery) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	// ListReports returns a page of reports, newest first, and the total matching count
	ListReports(ctx context.Context, filter ReportFilter) ([]models.Report, int, error)
}

// SettingsStore is a small key/value table for runtime settings
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) (map[string]string, error)
}

// Store bundles everything the application persists
type Store interface {
	KeywordRegistry
	ReportStore
	SettingsStore
}

// BlobStore is the write side of object storage used by the report archive
type BlobStore interface {
	Store(ctx context.Context, name string, data []byte) error
}
